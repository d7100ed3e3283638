// Package onpair implements a dictionary-based string compressor that
// learns a token vocabulary from a training corpus by merging adjacent
// byte-pairs (and later, token-pairs) online, as soon as a pair's count
// reaches a threshold, in the style of byte-pair-encoding tokenizers.
//
// Two variants are provided. Compressor places no bound on token length
// and grows its vocabulary until the 65,536-token cap is reached or no
// pair clears the merge threshold. Compressor16 caps every token at 16
// bytes and, once trained, finalizes its matcher into a read-only,
// perfect-hash-indexed structure tuned for fast parsing.
//
// Both variants decode via a fixed-stride unsafe copy per token for
// speed; callers must size destination buffers accordingly (see each
// variant's DecompressString doc comment).
package onpair
