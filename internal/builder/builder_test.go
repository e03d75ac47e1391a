package builder

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshx/meshx-tools/internal/apperrors"
	"github.com/meshx/meshx-tools/internal/toolchain"
	"github.com/meshx/meshx-tools/internal/toolchain/toolchaintest"
)

func newTestBuilder(t *testing.T, installed ...string) (*Builder, *toolchaintest.Recorder, *bytes.Buffer) {
	t.Helper()
	src := t.TempDir()
	rec := &toolchaintest.Recorder{}
	checker := toolchain.NewChecker(rec)
	checker.LookPath = toolchaintest.LookPath(installed...)
	var out bytes.Buffer

	return &Builder{
		Root:      filepath.Join(src, "build"),
		BSP:       "esp32c3_devkit",
		BuildType: "Debug",
		Profile:   "port/bsp/esp32c3_devkit/prod_profile.yml",
		SourceDir: src,
		Runner:    rec,
		Checker:   checker,
		Out:       &out,
	}, rec, &out
}

func TestDir(t *testing.T) {
	assert.Equal(t, "build/esp32c3_devkit/Release/light", Dir("build", "esp32c3_devkit", "Release", "light"))
}

func TestCMakeCommand(t *testing.T) {
	b := &Builder{Root: "build", BSP: "esp32c3_devkit", BuildType: "Debug", Profile: "p.yml"}

	assert.Equal(t,
		"cmake -S . -B build/esp32c3_devkit/Debug/light -G Ninja -DBSP=esp32c3_devkit -DPROD_NAME=light "+
			"-DMESHX_BUILD_TYPE=Debug -DPROD_PROFILE=p.yml -DELF='meshx_build_esp32c3_devkit'",
		b.CMakeCommand("light").String())
	assert.Equal(t, "ninja -C build/esp32c3_devkit/Debug/light", b.NinjaCommand("light").String())
}

func TestBuild(t *testing.T) {
	b, rec, out := newTestBuilder(t, "cmake", "ninja", "git")
	sdkconfig := filepath.Join(b.SourceDir, SdkconfigName)
	require.NoError(t, os.WriteFile(sdkconfig, []byte("CONFIG_A=y\n"), 0o644))

	require.NoError(t, b.Build(context.Background(), []string{"light", "switch"}))

	cmds := rec.Commands()
	require.Len(t, cmds, 4)
	assert.Equal(t, "cmake", cmds[0].Name)
	assert.Equal(t, []string{"-C", b.Dir("light")}, cmds[1].Args)
	assert.Contains(t, cmds[2].Args, "-DPROD_NAME=switch")
	assert.Equal(t, "ninja", cmds[3].Name)

	assert.NoFileExists(t, sdkconfig)
	assert.DirExists(t, b.Dir("light"))
	assert.DirExists(t, b.Dir("switch"))
	assert.Contains(t, out.String(), "Running CMake command: cmake -S ")
}

func TestBuild_MissingToolWritesNothing(t *testing.T) {
	b, rec, _ := newTestBuilder(t, "cmake", "git")
	sdkconfig := filepath.Join(b.SourceDir, SdkconfigName)
	require.NoError(t, os.WriteFile(sdkconfig, nil, 0o644))

	err := b.Build(context.Background(), []string{"light"})
	var notInstalled *apperrors.ToolNotInstalledError
	require.True(t, errors.As(err, &notInstalled))
	assert.Equal(t, "ninja", notInstalled.Tool)

	assert.Empty(t, rec.Commands())
	assert.FileExists(t, sdkconfig)
	assert.NoDirExists(t, b.Root)
}

func TestBuild_StopsAtFirstFailure(t *testing.T) {
	b, rec, _ := newTestBuilder(t, "cmake", "ninja", "git")
	rec.Fail = map[string]int{"ninja": 1}

	err := b.Build(context.Background(), []string{"light", "switch"})
	var sub *apperrors.SubprocessFailureError
	require.True(t, errors.As(err, &sub))
	assert.Contains(t, err.Error(), "build light")
	assert.Len(t, rec.Commands(), 2)
}

func TestBuild_CMakeVersion(t *testing.T) {
	b, rec, _ := newTestBuilder(t, "cmake", "ninja", "git")
	b.MinCMake = toolchain.MinCMakeVersion
	rec.Outputs = map[string]string{"cmake --version": "cmake version 3.5.1"}

	err := b.Build(context.Background(), []string{"light"})
	require.Error(t, err)
	assert.NoDirExists(t, b.Root)
}

func TestBuild_DryRun(t *testing.T) {
	b, _, _ := newTestBuilder(t, "cmake", "ninja", "git")
	b.DryRun = true
	sdkconfig := filepath.Join(b.SourceDir, SdkconfigName)
	require.NoError(t, os.WriteFile(sdkconfig, nil, 0o644))

	require.NoError(t, b.Build(context.Background(), []string{"light"}))
	assert.FileExists(t, sdkconfig)
	assert.NoDirExists(t, b.Root)
}

func TestClean(t *testing.T) {
	b, _, out := newTestBuilder(t)
	require.NoError(t, os.MkdirAll(filepath.Join(b.Dir("light"), "esp-idf"), 0o755))
	require.NoError(t, os.MkdirAll(b.Dir("switch"), 0o755))

	require.NoError(t, b.Clean([]string{"light", "missing"}))

	assert.NoDirExists(t, b.Dir("light"))
	assert.DirExists(t, b.Dir("switch"))
	assert.Equal(t, "Cleaning build directory: "+b.Dir("light")+"\n", out.String())
}
