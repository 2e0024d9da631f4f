package media

import (
	"context"
	"errors"
	"fmt"
)

// ErrVerification indicates an encode produced an unusable output file.
var ErrVerification = errors.New("output verification failed")

// VerifyHEVC re-probes an encoded file and confirms it carries an HEVC video
// stream. Called before the original file is replaced.
func (p *Prober) VerifyHEVC(ctx context.Context, path string) error {
	info, err := p.Probe(ctx, path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrVerification, err)
	}
	if len(info.StreamsOfType(CodecTypeVideo)) == 0 {
		return fmt.Errorf("%w: no video stream in %s", ErrVerification, path)
	}
	if !info.HasHEVCVideo() {
		return fmt.Errorf("%w: no HEVC video stream in %s", ErrVerification, path)
	}
	return nil
}
