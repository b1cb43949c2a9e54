package artifacts

import (
	"math/rand"
	"testing"

	"github.com/forgeflow/evocore/pkg/contracts"
	"github.com/stretchr/testify/require"
)

func TestBuildBundleOrderIndependent(t *testing.T) {
	files := []File{
		{Path: "b.go", Bytes: []byte("package b")},
		{Path: "a.go", Bytes: []byte("package a")},
		{Path: "c.go", Bytes: []byte("package c")},
	}

	shuffled := make([]File, len(files))
	copy(shuffled, files)
	rand.New(rand.NewSource(1)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	b1, err := BuildBundle(files)
	require.NoError(t, err)
	b2, err := BuildBundle(shuffled)
	require.NoError(t, err)

	require.Equal(t, b1.BundleSHA256, b2.BundleSHA256, "bundle hash must not depend on input order")
}

func TestBuildBundleDeterministicOnIdenticalBytes(t *testing.T) {
	files := []File{{Path: "a.go", Bytes: []byte("hello")}}
	b1, err := BuildBundle(files)
	require.NoError(t, err)
	b2, err := BuildBundle(files)
	require.NoError(t, err)
	require.Equal(t, b1.BundleSHA256, b2.BundleSHA256)
}

func TestBuildBundleDifferentContentDifferentHash(t *testing.T) {
	b1, err := BuildBundle([]File{{Path: "a.go", Bytes: []byte("v1")}})
	require.NoError(t, err)
	b2, err := BuildBundle([]File{{Path: "a.go", Bytes: []byte("v2")}})
	require.NoError(t, err)
	require.NotEqual(t, b1.BundleSHA256, b2.BundleSHA256)
}

func TestBuildBundleRejectsDuplicatePaths(t *testing.T) {
	_, err := BuildBundle([]File{
		{Path: "a.go", Bytes: []byte("1")},
		{Path: "a.go", Bytes: []byte("2")},
	})
	require.Error(t, err)
}

func TestVerifyBundleDetectsTamper(t *testing.T) {
	files := []File{{Path: "a.go", Bytes: []byte("original")}}
	bundle, err := BuildBundle(files)
	require.NoError(t, err)

	ok, err := VerifyBundle(files, bundle.BundleSHA256)
	require.NoError(t, err)
	require.True(t, ok)

	tampered := []File{{Path: "a.go", Bytes: []byte("mutated")}}
	ok, err = VerifyBundle(tampered, bundle.BundleSHA256)
	require.NoError(t, err)
	require.False(t, ok, "installer must reject on any hash mismatch")
}

func TestValidateGeneratorOutputRules(t *testing.T) {
	base := func() *contracts.GeneratorResponseContract {
		return &contracts.GeneratorResponseContract{
			Stage:    "implement",
			ModuleID: "weather/x",
			ChangedFiles: []contracts.GeneratorFile{
				{Path: "weather/x/adapter.go", Content: "package x"},
			},
		}
	}

	require.NoError(t, ValidateGeneratorOutput(base(), []string{"weather/"}))

	disallowed := base()
	disallowed.ChangedFiles[0].Path = "../../etc/passwd"
	err := ValidateGeneratorOutput(disallowed, []string{"weather/"})
	require.Error(t, err)
	require.Equal(t, contracts.ErrDisallowedPath, err.(*GeneratorOutputError).Kind)

	fenced := base()
	fenced.ChangedFiles[0].Content = "```go\npackage x\n```"
	err = ValidateGeneratorOutput(fenced, []string{"weather/"})
	require.Equal(t, contracts.ErrFenceDetected, err.(*GeneratorOutputError).Kind)

	tooMany := base()
	for i := 0; i < contracts.MaxGeneratorFiles; i++ {
		tooMany.ChangedFiles = append(tooMany.ChangedFiles, contracts.GeneratorFile{
			Path: "weather/x/extra.go", Content: "x",
		})
	}
	err = ValidateGeneratorOutput(tooMany, []string{"weather/"})
	require.Equal(t, contracts.ErrSizeExceeded, err.(*GeneratorOutputError).Kind)

	missing := &contracts.GeneratorResponseContract{Stage: "implement"}
	err = ValidateGeneratorOutput(missing, nil)
	require.Equal(t, contracts.ErrMissingField, err.(*GeneratorOutputError).Kind)
}

func TestBuildBundleEmpty(t *testing.T) {
	b, err := BuildBundle(nil)
	require.NoError(t, err)
	require.NotEmpty(t, b.BundleSHA256, "empty bundle still has a stable identity")
}
