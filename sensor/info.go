package sensor

import (
	"fmt"
	"io"
)

// ShowReading connects to the sensor, takes one reading and prints it to w.
func ShowReading(w io.Writer, cfg Config) error {
	s, err := NewTCPSensor(cfg)
	if err != nil {
		return fmt.Errorf("error connecting to sensor at %s: %w", cfg.Address, err)
	}
	defer s.Close()

	reading, err := s.Read()
	if err != nil {
		return fmt.Errorf("error reading sensor: %w", err)
	}

	return printReading(w, cfg, reading)
}

func printReading(w io.Writer, cfg Config, reading Reading) error {
	_, err := fmt.Fprintf(w, `
INDOOR SENSOR
--------------------------------------------------
  Address:                        %s (slave %d)
  Registers:                      %s %d/%d
  Time:                           %s
  Temperature:                    %.1f °C
  Humidity:                       %.1f %%
`,
		cfg.Address, cfg.SlaveID,
		cfg.RegisterType, cfg.TemperatureRegister, cfg.HumidityRegister,
		reading.Time.Format("2006-01-02 15:04:05"),
		reading.TemperatureC,
		reading.Humidity,
	)
	return err
}
