package hardware

import (
	"github.com/sirupsen/logrus"

	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/picobldc"
)

type picoHealth struct {
	pico interface {
		ReadHealth() (picobldc.Health, error)
	}
	log logrus.FieldLogger
}

func (p *picoHealth) ReportHealth() error {
	h, err := p.pico.ReadHealth()
	if err != nil {
		return err
	}
	entry := p.log.WithFields(logrus.Fields{
		"temp_c": h.TemperatureC,
		"volts":  h.BattVolts,
		"amps":   h.CurrentAmps,
		"watts":  h.PowerWatts,
		"status": h.Status,
	})
	if h.Status&picobldc.RegStatusFault != 0 {
		entry.Warn("Pico-BLDC reports a fault")
		return nil
	}
	if h.Status&picobldc.RegStatusWatchdogExpired != 0 {
		entry.Warn("Pico-BLDC watchdog expired")
		return nil
	}
	entry.Infof("%.1fC %.2fV %.3fA %.3fW", h.TemperatureC, h.BattVolts, h.CurrentAmps, h.PowerWatts)
	return nil
}
