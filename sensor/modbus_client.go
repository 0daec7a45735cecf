// Package sensor reads indoor temperature and humidity from a Modbus TCP
// sensor, such as the common RS485 temperature/humidity probes behind a
// Modbus TCP gateway.
package sensor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/goburrow/modbus"
)

// Register types a sensor may expose its measurements in.
const (
	HoldingRegisters = "holding"
	InputRegisters   = "input"
)

// Config describes where the sensor's measurements live.
type Config struct {
	Address             string
	SlaveID             byte
	RegisterType        string
	TemperatureRegister uint16
	HumidityRegister    uint16
	// Scale divides raw register values, e.g. 10 for tenths of a degree.
	Scale   float64
	Timeout time.Duration
}

// DefaultConfig returns the register layout used by most SHT20-based probes.
func DefaultConfig() Config {
	return Config{
		SlaveID:             1,
		RegisterType:        InputRegisters,
		TemperatureRegister: 1,
		HumidityRegister:    2,
		Scale:               10,
		Timeout:             1 * time.Second,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Address == "" {
		return errors.New("sensor address is required")
	}
	if c.RegisterType != HoldingRegisters && c.RegisterType != InputRegisters {
		return fmt.Errorf("register type must be %q or %q, got %q", HoldingRegisters, InputRegisters, c.RegisterType)
	}
	if c.Scale <= 0 {
		return fmt.Errorf("scale must be positive, got %v", c.Scale)
	}
	return nil
}

// Reading is one indoor measurement.
type Reading struct {
	TemperatureC float64   `json:"temperature_c"`
	Humidity     float64   `json:"humidity"`
	Time         time.Time `json:"time"`
}

// registerReader is the part of modbus.Client the sensor uses.
type registerReader interface {
	ReadHoldingRegisters(address, quantity uint16) ([]byte, error)
	ReadInputRegisters(address, quantity uint16) ([]byte, error)
}

// Sensor represents a connected Modbus temperature/humidity sensor
type Sensor struct {
	config  Config
	client  registerReader
	handler *modbus.TCPClientHandler
	now     func() time.Time
}

// NewTCPSensor connects to the sensor at cfg.Address.
func NewTCPSensor(cfg Config) (*Sensor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	handler := modbus.NewTCPClientHandler(cfg.Address)
	handler.SlaveId = cfg.SlaveID
	handler.Timeout = cfg.Timeout
	if handler.Timeout <= 0 {
		handler.Timeout = 1 * time.Second
	}

	if err := handler.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	return &Sensor{
		config:  cfg,
		client:  modbus.NewClient(handler),
		handler: handler,
		now:     time.Now,
	}, nil
}

// Close closes the Modbus connection
func (s *Sensor) Close() error {
	if s.handler != nil {
		return s.handler.Close()
	}
	return nil
}

// Read returns the current temperature and humidity.
func (s *Sensor) Read() (Reading, error) {
	temp, err := s.readRegister(s.config.TemperatureRegister)
	if err != nil {
		return Reading{}, fmt.Errorf("error reading temperature: %w", err)
	}

	humidity, err := s.readRegister(s.config.HumidityRegister)
	if err != nil {
		return Reading{}, fmt.Errorf("error reading humidity: %w", err)
	}

	return Reading{
		// Temperatures below zero are reported as two's complement.
		TemperatureC: float64(bytesToS16(temp)) / s.config.Scale,
		Humidity:     float64(bytesToU16(humidity)) / s.config.Scale,
		Time:         s.now(),
	}, nil
}

func (s *Sensor) readRegister(address uint16) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if s.config.RegisterType == HoldingRegisters {
		data, err = s.client.ReadHoldingRegisters(address, 1)
	} else {
		data, err = s.client.ReadInputRegisters(address, 1)
	}
	if err != nil {
		return nil, err
	}
	if len(data) < 2 {
		return nil, fmt.Errorf("register %d: expected 2 bytes, got %d", address, len(data))
	}
	return data, nil
}

func bytesToU16(data []byte) uint16 {
	return binary.BigEndian.Uint16(data)
}

func bytesToS16(data []byte) int16 {
	return int16(binary.BigEndian.Uint16(data))
}
