// Package errs defines the error taxonomy the segment manager surfaces
// to its callers. The core never panics on caller input or peer data;
// every failure mode is one of these sentinels, returned or logged.
package errs

import "errors"

var (
	// ErrInvalidArgument covers a nil/empty send buffer or
	// seq_no_end < seq_no_start. A class out of range is reported as
	// ErrUnknownClass.
	ErrInvalidArgument = errors.New("segcore: invalid argument")

	// ErrEmptyQueueAfterWake names the case where a dequeue woke on its
	// condition variable but the target queue had already been drained
	// by another consumer (spurious wakeup / race). No function in this
	// module returns it: the manager's dequeue reports this case as a nil
	// segment and Recv retries.
	ErrEmptyQueueAfterWake = errors.New("segcore: empty queue after wake")

	// ErrAllocationFailure names a free pool that cannot satisfy a Pop
	// because the underlying allocator failed. No function in this module
	// returns it: Pool.Pop always allocates a fresh segment on a miss.
	ErrAllocationFailure = errors.New("segcore: allocation failure")

	// ErrRetransmitShortfall indicates a retransmit request named a
	// range not fully present in the sent list; best-effort partial
	// retransmission still proceeds, this only reports the shortfall.
	ErrRetransmitShortfall = errors.New("segcore: retransmit shortfall")

	// ErrUnknownClass indicates a queue or sequence class value outside
	// the two defined classes; always a caller bug.
	ErrUnknownClass = errors.New("segcore: unknown class")

	// ErrClosed is returned by Recv when the manager has been shut down
	// and a blocking dequeue was interrupted rather than satisfied.
	ErrClosed = errors.New("segcore: manager closed")
)
