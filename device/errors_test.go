package device

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_IsMatchesKind(t *testing.T) {
	err := &Error{Kind: SourceUnreadable, Op: "read source", Err: errors.New("no such file")}

	assert.True(t, errors.Is(err, ErrSourceUnreadable))
	assert.False(t, errors.Is(err, ErrCompilationFailed))

	wrapped := fmt.Errorf("build stage: %w", err)
	assert.True(t, errors.Is(wrapped, ErrSourceUnreadable))
	assert.Equal(t, SourceUnreadable, KindOf(wrapped))
}

func TestError_Message(t *testing.T) {
	testCases := []struct {
		name     string
		err      *Error
		expected string
	}{
		{"kind only", &Error{Kind: NoDeviceFound}, "NoDeviceFound"},
		{"with op", &Error{Kind: EnqueueFailed, Op: "enqueue"}, "EnqueueFailed: enqueue"},
		{"with cause", &Error{Kind: ReadBackFailed, Err: errors.New("lost")}, "ReadBackFailed: lost"},
		{"full", &Error{Kind: CompilationFailed, Op: "build", Err: errors.New("syntax")},
			"CompilationFailed: build: syntax"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.err.Error())
		})
	}
}

func TestWrap_KeepsExistingKind(t *testing.T) {
	inner := &Error{Kind: CompilationFailed, Op: "occa build"}
	err := Wrap(EntryPointNotFound, "extract entry point", fmt.Errorf("kernel: %w", inner))
	assert.Equal(t, CompilationFailed, KindOf(err))

	plain := Wrap(EntryPointNotFound, "extract entry point", errors.New("no symbol"))
	assert.Equal(t, EntryPointNotFound, KindOf(plain))

	assert.Nil(t, Wrap(EnqueueFailed, "enqueue", nil))
}

func TestKindOf_Unclassified(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, "Kind(99)", Kind(99).String())
}

func TestParseClassAndFallback(t *testing.T) {
	for in, want := range map[string]DeviceClass{
		"gpu": ClassGPU, "GPU": ClassGPU, "accelerator": ClassAccelerator,
		"cpu": ClassCPU, "": ClassAll, "all": ClassAll,
	} {
		got, err := ParseClass(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseClass("fpga")
	assert.Error(t, err)

	p, err := ParseFallback("any")
	require.NoError(t, err)
	assert.Equal(t, FallbackAny, p)
	p, err = ParseFallback("")
	require.NoError(t, err)
	assert.Equal(t, FallbackNone, p)
	_, err = ParseFallback("sometimes")
	assert.Error(t, err)
}

func TestDeviceClass_Matches(t *testing.T) {
	assert.True(t, ClassGPU.Matches(ClassAll))
	assert.True(t, ClassGPU.Matches(ClassGPU))
	assert.False(t, ClassCPU.Matches(ClassGPU))
}
