// Package segment defines the fixed-capacity wire unit the rest of the
// segment manager moves between the free pool, the send/receive queues,
// the sent list and the failed list.
package segment

import "encoding/binary"

// Flag bits carried in Segment.Flag and mirrored on the wire.
const (
	// FlagMF marks that more fragments of the same logical message follow.
	FlagMF uint32 = 0x01
	// FlagControl marks that the segment belongs to the control class.
	FlagControl uint32 = 0x02
)

// HeaderSize is the fixed size, in bytes, of the in-band header occupying
// the first bytes of every segment's buffer.
const HeaderSize = 20

// Segment is a fixed-capacity transmission unit: a byte buffer of size
// SegSize, plus metadata fields mirrored into the buffer's first
// HeaderSize bytes once SerializeHeader runs.
//
// A Segment is always singly owned: at any instant it lives in exactly
// one of the free pool, a queue, the sent list, the failed list, or a
// caller's hands during reassembly. next/prev exist so a Segment can be
// threaded through the intrusive list in package seglist without a
// separate wrapper allocation; they belong to whichever list currently
// holds the segment and must not be touched by anyone else.
type Segment struct {
	SeqNo           uint32
	Len             uint32
	Flag            uint32
	SendStartTsSec  int32
	SendStartTsUsec int32
	Buffer          []byte

	next, prev *Segment
}

// New allocates a zeroed Segment with a buffer of the given wire size.
func New(segSize int) *Segment {
	return &Segment{Buffer: make([]byte, segSize)}
}

// Reset clears the metadata fields the way pop_free_segment resets a
// reused segment in the original. Buffer contents are left untouched and
// are considered undefined by the new owner until it writes them.
func (s *Segment) Reset() {
	s.SeqNo = 0
	s.Len = 0
	s.Flag = 0
}

// Payload returns the slice of Buffer that follows the header, sized to
// the on-wire segment capacity rather than to s.Len; callers that only
// want the logical payload should slice by s.Len themselves.
func (s *Segment) Payload() []byte {
	return s.Buffer[HeaderSize:]
}

// SerializeHeader writes SeqNo, Len, Flag, SendStartTsSec and
// SendStartTsUsec into the first HeaderSize bytes of Buffer, each as a
// big-endian 32-bit field, in that order. It is the caller's
// responsibility to call this before the segment is handed to a
// transport, and after every metadata field is final.
func (s *Segment) SerializeHeader() {
	buf := s.Buffer[:HeaderSize]
	binary.BigEndian.PutUint32(buf[0:4], s.SeqNo)
	binary.BigEndian.PutUint32(buf[4:8], s.Len)
	binary.BigEndian.PutUint32(buf[8:12], s.Flag)
	binary.BigEndian.PutUint32(buf[12:16], uint32(s.SendStartTsSec))
	binary.BigEndian.PutUint32(buf[16:20], uint32(s.SendStartTsUsec))
}

// DeserializeHeader recovers the five header fields from a HeaderSize
// (or larger) buffer. It is the exact inverse of SerializeHeader and
// does not mutate buf.
func DeserializeHeader(buf []byte) (seqNo, length, flag uint32, tsSec, tsUsec int32) {
	seqNo = binary.BigEndian.Uint32(buf[0:4])
	length = binary.BigEndian.Uint32(buf[4:8])
	flag = binary.BigEndian.Uint32(buf[8:12])
	tsSec = int32(binary.BigEndian.Uint32(buf[12:16]))
	tsUsec = int32(binary.BigEndian.Uint32(buf[16:20]))
	return
}

// Next returns the segment's successor in whichever intrusive list
// currently holds it, or nil.
func (s *Segment) Next() *Segment { return s.next }

// Prev returns the segment's predecessor in whichever intrusive list
// currently holds it, or nil.
func (s *Segment) Prev() *Segment { return s.prev }

// SetNext is used by package seglist to thread the intrusive list.
func (s *Segment) SetNext(n *Segment) { s.next = n }

// SetPrev is used by package seglist to thread the intrusive list.
func (s *Segment) SetPrev(p *Segment) { s.prev = p }
