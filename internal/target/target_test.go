package target

import (
	"context"
	"errors"
	"io/fs"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshx/meshx-tools/internal/apperrors"
	"github.com/meshx/meshx-tools/internal/toolchain"
	"github.com/meshx/meshx-tools/internal/toolchain/toolchaintest"
)

const buildDir = "build/esp32c3_devkit/Debug/light"

func newTestESP(port string) (*ESP, *toolchaintest.Recorder) {
	rec := &toolchaintest.Recorder{}
	t := NewESP(Options{Port: port, Baud: 115200, Runner: rec})
	t.Stat = func(string) (fs.FileInfo, error) { return nil, nil }
	return t, rec
}

func TestNew(t *testing.T) {
	tgt, err := New("esp", Options{Runner: &toolchaintest.Recorder{}})
	require.NoError(t, err)
	assert.Equal(t, "esp", tgt.Name())

	_, err = New("nrf", Options{})
	assert.ErrorIs(t, err, ErrNotImplemented)

	_, err = New("stm32", Options{})
	var verr *apperrors.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, err.Error(), "unsupported target host: stm32")
}

func TestESP_Flash(t *testing.T) {
	tgt, rec := newTestESP("/dev/ttyUSB0")

	require.NoError(t, tgt.Flash(context.Background(), buildDir))

	want := []toolchain.Command{{
		Name: "esptool.py",
		Args: []string{
			"--chip", "auto",
			"--port", "/dev/ttyUSB0",
			"--before", "default_reset",
			"--after", "hard_reset",
			"write_flash", "@flash_args",
		},
		Dir: buildDir,
	}}
	if diff := cmp.Diff(want, rec.Commands()); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}
}

func TestESP_Flash_PortMissing(t *testing.T) {
	tgt, rec := newTestESP("/dev/ttyUSB9")
	tgt.Stat = func(string) (fs.FileInfo, error) { return nil, fs.ErrNotExist }

	err := tgt.Flash(context.Background(), buildDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port /dev/ttyUSB9 does not exist")
	assert.Empty(t, rec.Commands())
}

func TestESP_RequiresPort(t *testing.T) {
	tgt, rec := newTestESP("")
	ctx := context.Background()

	for name, op := range map[string]func(context.Context, string) error{
		"flash":   tgt.Flash,
		"erase":   tgt.Erase,
		"monitor": tgt.Monitor,
	} {
		t.Run(name, func(t *testing.T) {
			err := op(ctx, buildDir)
			var verr *apperrors.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, "port", verr.Field)
		})
	}
	assert.Empty(t, rec.Commands())
}

func TestESP_Erase(t *testing.T) {
	tgt, rec := newTestESP("/dev/ttyACM0")

	require.NoError(t, tgt.Erase(context.Background(), buildDir))
	assert.Equal(t, []string{
		"esptool.py --chip auto --port /dev/ttyACM0 --before default_reset --after hard_reset erase_flash",
	}, rec.Lines())
	assert.Equal(t, buildDir, rec.Commands()[0].Dir)
}

func TestESP_Monitor(t *testing.T) {
	tgt, rec := newTestESP("/dev/ttyACM0")
	tgt.Baud = 921600

	require.NoError(t, tgt.Monitor(context.Background(), buildDir))
	assert.Equal(t, []string{"python -m esp_idf_monitor --port /dev/ttyACM0 --baud 921600"}, rec.Lines())
}

func TestESP_Configure(t *testing.T) {
	tgt, rec := newTestESP("")

	require.NoError(t, tgt.Configure(context.Background(), buildDir))
	assert.Equal(t, []string{"ninja -C " + buildDir + " menuconfig"}, rec.Lines())
}

func TestESP_CheckTools(t *testing.T) {
	tgt, rec := newTestESP("")
	tgt.Checker.LookPath = toolchaintest.LookPath("esptool.py", "python")

	require.NoError(t, tgt.CheckTools(context.Background()))
	assert.Equal(t, []string{"python -c import esp_idf_monitor"}, rec.Lines())

	tgt.Checker.LookPath = toolchaintest.LookPath("python")
	err := tgt.CheckTools(context.Background())
	var notInstalled *apperrors.ToolNotInstalledError
	require.True(t, errors.As(err, &notInstalled))
	assert.Equal(t, "esptool.py", notInstalled.Tool)
}

func TestESP_SubprocessFailure(t *testing.T) {
	tgt, rec := newTestESP("/dev/ttyUSB0")
	rec.Fail = map[string]int{"esptool.py": 2}

	err := tgt.Erase(context.Background(), buildDir)
	var sub *apperrors.SubprocessFailureError
	require.True(t, errors.As(err, &sub))
	assert.Equal(t, 2, sub.ExitCode)
}
