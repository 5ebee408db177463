package influxdb

import (
	"context"
	"errors"
	"testing"

	"github.com/fcollonval/hass-core/internal/infrastructure/config"
)

func TestConnect_Disabled(t *testing.T) {
	_, err := Connect(config.InfluxDBConfig{Enabled: false})
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestHealthCheck_NotConnected(t *testing.T) {
	client := &Client{}

	err := client.HealthCheck(context.Background())
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestClose_NilClient(t *testing.T) {
	client := &Client{}

	if err := client.Close(); err != nil {
		t.Errorf("Close() on zero client error = %v", err)
	}
}

func TestWriteStateChange_DroppedWhenDisconnected(t *testing.T) {
	// A disconnected client must silently drop points: recording is
	// best-effort and must never block or panic in the message path.
	client := &Client{}

	client.WriteStateChange("fan-preset", "select", "medium")
	client.WriteVersionChange("firmware", "1.0.0", "2.0.0")
}

func TestFlush_NilWriteAPI(t *testing.T) {
	client := &Client{}

	// Safe no-op before Connect or after Close.
	client.Flush()
}
