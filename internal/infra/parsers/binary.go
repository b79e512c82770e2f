package parsers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/bryanwahyu/forensiq/internal/domain/evidence"
)

// BinaryParser fingerprints an executable-like artifact. It never executes
// or disassembles the file.
type BinaryParser struct{}

func NewBinaryParser() *BinaryParser { return &BinaryParser{} }

func (p *BinaryParser) Parse(ctx context.Context, path string) ([]evidence.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	sum, err := HashSHA256(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("hash %s: %w", info.Name(), err)
	}

	return []evidence.Event{{
		Timestamp:   info.ModTime().Format(time.ANSIC),
		Description: fmt.Sprintf("Suspicious file created (SHA256: %s...)", sum[:10]),
		Source:      evidence.SourceFileSystem,
	}}, nil
}

// HashSHA256 streams r through SHA-256 and returns the hex digest.
func HashSHA256(ctx context.Context, r io.Reader) (string, error) {
	h := sha256.New()
	buf := make([]byte, 32*1024)
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		n, err := r.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
