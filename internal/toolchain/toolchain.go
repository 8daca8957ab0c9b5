// Package toolchain verifies the external build tool before anything runs.
package toolchain

import (
	"context"
	"errors"
	"strings"

	"github.com/goplus/extbuild/pkgs/buildsys"
	"github.com/goplus/extbuild/pkgs/buildsys/cmake"
	"github.com/goplus/extbuild/pkgs/target"
	"github.com/qiniu/x/log"
	"go.trai.ch/zerr"
)

var (
	// ErrToolchainMissing is returned when cmake cannot be found or run.
	ErrToolchainMissing = zerr.New("cmake must be installed to build the extensions")

	// ErrToolchainTooOld is returned when cmake is below the platform minimum.
	ErrToolchainTooOld = zerr.New("cmake is too old")
)

// MinWindowsVersion is the oldest cmake known to work on Windows.
var MinWindowsVersion = cmake.MustParse("3.1.0")

// Prober is the part of cmake.CMake the check needs.
type Prober interface {
	Name() string
	Version(ctx context.Context) (cmake.Version, string, error)
}

// Check queries the tool version and enforces the minimum on platforms
// where older releases are known to break. targets only decorate the
// error message.
func Check(ctx context.Context, tool Prober, p buildsys.Platform, targets []target.Descriptor) (cmake.Version, error) {
	v, out, err := tool.Version(ctx)
	if err != nil {
		msg := tool.Name() + " --version failed"
		names := targetNames(targets)
		if names != "" {
			msg += "; it is needed to build the following extensions: " + names
		}
		werr := zerr.With(zerr.Wrap(err, msg), "tool", tool.Name())
		if names != "" {
			werr = zerr.With(werr, "targets", names)
		}
		return cmake.Version{}, errors.Join(ErrToolchainMissing, werr)
	}
	if !p.IsWindows() {
		log.Debugf("%s version %s", tool.Name(), v)
		return v, nil
	}
	if v.IsZero() {
		werr := zerr.With(zerr.New("cannot parse "+tool.Name()+" version"), "output", strings.TrimSpace(out))
		return v, errors.Join(ErrToolchainTooOld, werr)
	}
	if v.Less(MinWindowsVersion) {
		werr := zerr.With(zerr.New(tool.Name()+" >= "+MinWindowsVersion.String()+" is required on Windows"), "version", v.String())
		return v, errors.Join(ErrToolchainTooOld, werr)
	}
	log.Debugf("%s version %s", tool.Name(), v)
	return v, nil
}

func targetNames(targets []target.Descriptor) string {
	names := make([]string, len(targets))
	for i, t := range targets {
		names[i] = t.Name
	}
	return strings.Join(names, ", ")
}
