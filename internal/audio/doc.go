// Package audio turns raw linear PCM from the speech synthesizer into a WAV
// container browsers can play directly.
//
// Encoding is a pure function of its inputs: the same PCM and format always
// produce byte-identical output, and no state is kept between calls.
package audio
