package onpair

const (
	singleByteTokens  = 256   // reserved token IDs 0-255, one per byte value
	defaultMaxTokenID = 65535 // uint16 max, the hard vocabulary cap

	defaultTrainingSampleBytes = 1024 * 1024 // 1 MiB
	defaultTemplateMaxClusters = 2048
	defaultTemplateTokens      = 12
	templateOtherClusterKey    = "__template_other__"
)

// Config holds the tunables shared by Compressor and Compressor16.
// Unset fields resolve to their defaults when the compressor or model is
// constructed. The one exception is Threshold: Compressor16 rejects a zero
// Threshold, while Compressor and Model pick one dynamically at training
// time.
type Config struct {
	Threshold           uint16 // merge threshold, pairs below this count never merge (0 = dynamic)
	MaxTokenID          uint16 // highest token ID the learner may assign (0 = default max)
	TrainingSampleBytes int    // bytes of shuffled input walked during training (0 = default 1 MiB)
	TemplateStratified  bool   // draw training rows proportionally from structural clusters
	TemplateMaxClusters int    // cap on distinct template clusters (0 = default)
	capacityHint        int    // optional initial row-count hint, set by WithCapacity
}

// Option configures a Config via the functional-options pattern.
type Option func(*Config)

// WithThreshold sets a fixed minimum merge count: a token pair only
// merges once it has occurred at least t times in the sampled training
// data. Compressor16 requires t > 1 and has no dynamic fallback — omitting
// WithThreshold (t == 0) makes NewCompressor16 fail with
// ErrInvalidThreshold. A plain Compressor accepts t == 0 to mean "let the
// learner pick a threshold dynamically from the corpus size".
func WithThreshold(t uint16) Option {
	return func(c *Config) { c.Threshold = t }
}

// WithMaxTokenID caps the vocabulary below the hard 65,535 ceiling.
// Values below singleByteTokens are clamped up to it, since the 256
// single-byte tokens are always reserved.
func WithMaxTokenID(maxID uint16) Option {
	return func(c *Config) { c.MaxTokenID = maxID }
}

// WithTrainingSampleBytes bounds how many bytes of the (already shuffled)
// training corpus the merge loop walks. Non-positive values restore the
// default.
func WithTrainingSampleBytes(n int) Option {
	return func(c *Config) { c.TrainingSampleBytes = n }
}

// WithTemplateStratifiedSampling selects training rows by drawing a
// proportional quota from each structural template cluster (see
// templateKey) instead of a flat byte-bounded walk. maxClusters <= 0
// uses the default cap.
func WithTemplateStratifiedSampling(maxClusters int) Option {
	return func(c *Config) {
		c.TemplateStratified = true
		c.TemplateMaxClusters = maxClusters
	}
}

// WithCapacity hints the expected number of rows so internal slices can
// be preallocated; it never bounds behavior.
func WithCapacity(n int) Option {
	return func(c *Config) { c.capacityHint = n }
}

func newConfig(opts ...Option) Config {
	var c Config
	for _, opt := range opts {
		opt(&c)
	}
	c.normalize()
	return c
}

func (c *Config) normalize() {
	if c.MaxTokenID == 0 || c.MaxTokenID > defaultMaxTokenID {
		c.MaxTokenID = defaultMaxTokenID
	}
	if c.MaxTokenID < singleByteTokens {
		c.MaxTokenID = singleByteTokens
	}
	if c.TrainingSampleBytes <= 0 {
		c.TrainingSampleBytes = defaultTrainingSampleBytes
	}
	if c.TemplateStratified && c.TemplateMaxClusters <= 0 {
		c.TemplateMaxClusters = defaultTemplateMaxClusters
	}
}
