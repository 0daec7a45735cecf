package sensor

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

type fakeRegisters struct {
	holding map[uint16][]byte
	input   map[uint16][]byte
	err     error
}

func (f *fakeRegisters) ReadHoldingRegisters(address, quantity uint16) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.holding[address], nil
}

func (f *fakeRegisters) ReadInputRegisters(address, quantity uint16) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.input[address], nil
}

func newFakeSensor(cfg Config, regs *fakeRegisters) *Sensor {
	return &Sensor{
		config: cfg,
		client: regs,
		now:    func() time.Time { return time.Date(2012, time.June, 27, 7, 0, 0, 0, time.UTC) },
	}
}

func TestSensorRead(t *testing.T) {
	tests := []struct {
		name         string
		registerType string
		temp         []byte
		humidity     []byte
		wantTemp     float64
		wantHumidity float64
	}{
		{
			name:         "input registers",
			registerType: InputRegisters,
			temp:         []byte{0x00, 0xD7}, // 215
			humidity:     []byte{0x01, 0xC4}, // 452
			wantTemp:     21.5,
			wantHumidity: 45.2,
		},
		{
			name:         "holding registers",
			registerType: HoldingRegisters,
			temp:         []byte{0x00, 0xC8}, // 200
			humidity:     []byte{0x02, 0x58}, // 600
			wantTemp:     20.0,
			wantHumidity: 60.0,
		},
		{
			name:         "below freezing",
			registerType: InputRegisters,
			temp:         []byte{0xFF, 0x9C}, // -100
			humidity:     []byte{0x00, 0x64}, // 100
			wantTemp:     -10.0,
			wantHumidity: 10.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Address = "localhost:502"
			cfg.RegisterType = tt.registerType

			regs := &fakeRegisters{
				holding: map[uint16][]byte{},
				input:   map[uint16][]byte{},
			}
			target := regs.input
			if tt.registerType == HoldingRegisters {
				target = regs.holding
			}
			target[cfg.TemperatureRegister] = tt.temp
			target[cfg.HumidityRegister] = tt.humidity

			reading, err := newFakeSensor(cfg, regs).Read()
			if err != nil {
				t.Fatalf("Read returned error: %v", err)
			}
			if math.Abs(reading.TemperatureC-tt.wantTemp) > 1e-9 {
				t.Errorf("Expected temperature %v, got %v", tt.wantTemp, reading.TemperatureC)
			}
			if math.Abs(reading.Humidity-tt.wantHumidity) > 1e-9 {
				t.Errorf("Expected humidity %v, got %v", tt.wantHumidity, reading.Humidity)
			}
			if reading.Time.IsZero() {
				t.Error("Expected reading time to be set")
			}
		})
	}
}

func TestSensorReadErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Address = "localhost:502"

	_, err := newFakeSensor(cfg, &fakeRegisters{err: errors.New("timeout")}).Read()
	if err == nil {
		t.Error("Expected error from failing client")
	}

	short := &fakeRegisters{input: map[uint16][]byte{1: {0x01}}}
	if _, err := newFakeSensor(cfg, short).Read(); err == nil {
		t.Error("Expected error for short register data")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name        string
		modify      func(*Config)
		expectError bool
	}{
		{name: "valid", modify: func(c *Config) {}},
		{name: "missing address", modify: func(c *Config) { c.Address = "" }, expectError: true},
		{name: "bad register type", modify: func(c *Config) { c.RegisterType = "coil" }, expectError: true},
		{name: "zero scale", modify: func(c *Config) { c.Scale = 0 }, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Address = "localhost:502"
			tt.modify(&cfg)

			err := cfg.Validate()
			if tt.expectError && err == nil {
				t.Error("Expected error, got nil")
			}
			if !tt.expectError && err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		})
	}
}

func TestPrintReading(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Address = "10.0.0.5:502"

	var buf strings.Builder
	reading := Reading{TemperatureC: 21.5, Humidity: 45.2, Time: time.Date(2012, time.June, 27, 7, 0, 0, 0, time.UTC)}
	if err := printReading(&buf, cfg, reading); err != nil {
		t.Fatalf("printReading returned error: %v", err)
	}

	for _, want := range []string{"10.0.0.5:502 (slave 1)", "input 1/2", "21.5 °C", "45.2 %", "2012-06-27 07:00:00"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, buf.String())
		}
	}
}
