package sensor

import (
	"context"
	"sync"

	"codeberg.org/mutker/thermalwatch/internal/errors"
	"codeberg.org/mutker/thermalwatch/internal/logger"
	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

// nvmlError represents an NVML-specific error
type nvmlError struct {
	ret nvml.Return
}

func (e nvmlError) Error() string {
	return nvml.ErrorString(e.ret)
}

// NVMLSource reads the core temperature of the first NVIDIA device. NVML is
// loaded lazily; a missing driver makes the source permanently unavailable.
type NVMLSource struct {
	lib nvml.Interface

	once        sync.Once
	initialized bool
	device      nvml.Device
	err         error
}

func NewNVMLSource() *NVMLSource {
	return newNVMLSource(nvml.New())
}

func newNVMLSource(lib nvml.Interface) *NVMLSource {
	return &NVMLSource{lib: lib}
}

func (*NVMLSource) Name() string {
	return "nvml"
}

func (n *NVMLSource) init() {
	errFactory := errors.New()

	if ret := n.lib.Init(); ret != nvml.SUCCESS {
		n.err = errFactory.Wrap(ErrNVMLUnavailable, nvmlError{ret: ret})
		return
	}
	n.initialized = true

	count, ret := n.lib.DeviceGetCount()
	if ret != nvml.SUCCESS {
		n.err = errFactory.Wrap(ErrNVMLUnavailable, nvmlError{ret: ret})
		return
	}
	if count == 0 {
		n.err = errFactory.WithMessage(ErrNVMLUnavailable, "no NVIDIA devices found")
		return
	}

	n.device, ret = n.lib.DeviceGetHandleByIndex(0)
	if ret != nvml.SUCCESS {
		n.err = errFactory.Wrap(ErrNVMLUnavailable, nvmlError{ret: ret})
		return
	}

	if name, ret := n.device.GetName(); ret == nvml.SUCCESS {
		logger.Info().Msgf("Detected GPU: %v", name)
	}
}

func (n *NVMLSource) Read(_ context.Context) (float64, error) {
	n.once.Do(n.init)
	if n.err != nil {
		return 0, n.err
	}

	temp, ret := n.device.GetTemperature(nvml.TEMPERATURE_GPU)
	if ret != nvml.SUCCESS {
		return 0, errors.New().Wrap(ErrSourceRead, nvmlError{ret: ret})
	}

	return float64(temp), nil
}

// Shutdown releases NVML if Init succeeded, even when no device was opened.
// Later calls are no-ops.
func (n *NVMLSource) Shutdown() error {
	if !n.initialized {
		return nil
	}
	n.initialized = false

	if ret := n.lib.Shutdown(); ret != nvml.SUCCESS {
		return errors.New().Wrap(errors.ErrShutdownFailed, nvmlError{ret: ret})
	}

	return nil
}
