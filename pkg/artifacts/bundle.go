// Package artifacts builds and verifies ArtifactBundles: deterministic,
// content-addressed sets of files produced by a Self-Evolution Pipeline
// stage (C1 §4.1).
//
// The hashing scheme uses domain-separated leaf/bundle prefixes rather
// than flat concatenation, so a single tampered file can in principle
// be localized from the leaf hash list even though the top-level
// identity is one SHA-256 digest.
package artifacts

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/forgeflow/evocore/pkg/contracts"
)

// File is a single input to build_bundle: a path and its raw bytes.
type File struct {
	Path  string
	Bytes []byte
}

const (
	leafDomain   = "evocore:bundle:leaf:v1"
	bundleDomain = "evocore:bundle:root:v1"
)

// BuildBundle sorts files by path, hashes each file's content, then
// hashes the sorted concatenation of (path, hex-hash) pairs. The
// result is reproducible byte-for-byte regardless of input ordering.
func BuildBundle(files []File) (*contracts.ArtifactBundle, error) {
	sorted := make([]File, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	entries := make([]contracts.ArtifactBundleEntry, 0, len(sorted))
	var concat bytes.Buffer
	seen := make(map[string]bool, len(sorted))

	for _, f := range sorted {
		if seen[f.Path] {
			return nil, fmt.Errorf("artifacts: duplicate path %q in bundle input", f.Path)
		}
		seen[f.Path] = true

		leafHash := leafSHA256(f.Path, f.Bytes)
		entries = append(entries, contracts.ArtifactBundleEntry{
			Path:        f.Path,
			ContentHash: leafHash,
			Size:        int64(len(f.Bytes)),
		})
		concat.WriteString(f.Path)
		concat.WriteByte(':')
		concat.WriteString(leafHash)
		concat.WriteByte('\n')
	}

	root := sha256Hex([]byte(bundleDomain), []byte{0}, concat.Bytes())

	return &contracts.ArtifactBundle{
		Entries:      entries,
		BundleSHA256: root,
	}, nil
}

// VerifyBundle recomputes the bundle hash from files and compares it
// against expectedSHA256.
func VerifyBundle(files []File, expectedSHA256 string) (bool, error) {
	bundle, err := BuildBundle(files)
	if err != nil {
		return false, err
	}
	return bundle.BundleSHA256 == expectedSHA256, nil
}

func leafSHA256(path string, content []byte) string {
	return sha256Hex([]byte(leafDomain), []byte{0}, []byte(path), []byte{0}, content)
}

func sha256Hex(parts ...[]byte) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	return hex.EncodeToString(h.Sum(nil))
}
