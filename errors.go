package onpair

import "errors"

var (
	// ErrInvalidThreshold is returned by NewCompressor16 when the
	// supplied merge threshold is not greater than 1.
	ErrInvalidThreshold = errors.New("onpair: merge threshold must be > 1")

	// ErrShortBuffer reports a destination buffer not large enough to
	// hold a decoded row plus the fixed-stride tail padding the fast-copy
	// path needs. No function in this package returns it: the fast-copy
	// paths do not check buffer length, and the checked AppendRow/
	// AppendAll paths grow dst as needed.
	ErrShortBuffer = errors.New("onpair: destination buffer too short")

	// ErrUntrainedModel is returned by Model.Encode when called before
	// Model.Train has completed successfully.
	ErrUntrainedModel = errors.New("onpair: model has not been trained")

	// ErrNoTrainingData is returned when Train is called with an empty
	// corpus; there is no meaningful vocabulary to learn.
	ErrNoTrainingData = errors.New("onpair: training corpus is empty")
)
