package picobldc

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/io/i2c"
)

const (
	DefaultAddr = 0x42
	DefaultBus  = "/dev/i2c-1"
)

type Register byte

const (
	RegCtrl Register = iota
	RegStatus
	RegWatchdogTimeout
	RegFaultCount

	RegMot0V
	RegMot1V
	RegMot2V
	RegMot3V

	RegMot0Calib
	RegMot1Calib
	RegMot2Calib
	RegMot3Calib

	RegBattV // LSB=4mV
	RegCurrent
	RegPower

	RegTemperature // LSB = 0.01C
)

const (
	BattVLSB       = 0.004
	CurrentLSB     = 0.0001831054688
	PowerLSB       = CurrentLSB * 20
	TemperatureLSB = 0.01
)

const (
	RegCtrlEnableI2CControl uint16 = 1 << iota
	RegCtrlRun
	RegCtrlDoCalib
	RegCtrlReset
	RegCtrlWatchdogEnable
)

type StatusFlag uint16

const (
	RegStatusFault StatusFlag = 1 << iota
	RegStatusCalibDone
	RegStatusWatchdogExpired
)

const writeRetries = 20

var ErrCalibrationTimeout = errors.New("Pico-BLDC calibration did not finish")

// conn is the subset of *i2c.Device that we use.
type conn interface {
	Write(buf []byte) error
	ReadReg(reg byte, buf []byte) error
	Close() error
}

type PicoBLDC struct {
	lock sync.Mutex
	dev  conn
	open func() (conn, error)
	log  logrus.FieldLogger

	lastConfigWord  uint16
	lastConfigTime  time.Time
	watchdogEnabled bool
}

// New opens the board on the given I2C bus device.
func New(bus string, addr int, log logrus.FieldLogger) (*PicoBLDC, error) {
	open := func() (conn, error) {
		return i2c.Open(&i2c.Devfs{Dev: bus}, addr)
	}
	dev, err := open()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open Pico-BLDC at %s/%#x", bus, addr)
	}
	return newWithConn(dev, open, log), nil
}

func newWithConn(dev conn, open func() (conn, error), log logrus.FieldLogger) *PicoBLDC {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &PicoBLDC{
		dev:  dev,
		open: open,
		log:  log.WithField("component", "picobldc"),
	}
}

func (p *PicoBLDC) Reset() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.maybeConfigure(true, false)
}

// SetWatchdog makes the board stop its motors by itself if it is not written
// to within the timeout.  Zero disables the watchdog.
func (p *PicoBLDC) SetWatchdog(timeout time.Duration) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if timeout == 0 {
		p.watchdogEnabled = false
		return p.maybeConfigure(false, false)
	}

	ms := timeout.Milliseconds()
	if ms > math.MaxUint16 {
		ms = math.MaxUint16
	}
	err := p.writeReg(RegWatchdogTimeout, uint16(ms))
	if err != nil {
		return err
	}

	p.watchdogEnabled = true
	return p.maybeConfigure(false, false)
}

// SetMotorSpeed sets the signed velocity of one motor channel (0-3).
func (p *PicoBLDC) SetMotorSpeed(motor int, speed int16) error {
	if motor < 0 || motor > 3 {
		return errors.Errorf("no such Pico-BLDC motor %d", motor)
	}
	p.lock.Lock()
	defer p.lock.Unlock()

	if err := p.maybeConfigure(false, true); err != nil {
		return err
	}
	return p.writeReg(RegMot0V+Register(motor), uint16(speed))
}

func (p *PicoBLDC) Close() error {
	resetErr := p.Reset()
	p.lock.Lock()
	defer p.lock.Unlock()
	if err := p.dev.Close(); err != nil {
		return err
	}
	return resetErr
}

func (p *PicoBLDC) writeWithRetries(data []byte) error {
	var err error
	for tries := 0; tries < writeRetries; tries++ {
		err = p.dev.Write(data)
		if err == nil {
			if tries > 0 {
				p.log.Info("Successfully programmed Pico-BLDC after retries")
			}
			return nil
		}
		p.log.WithError(err).Warn("Failed to write to Pico-BLDC")
		time.Sleep(1 * time.Millisecond)
		if p.open == nil {
			continue
		}
		_ = p.dev.Close()
		dev, openErr := p.open()
		if openErr != nil {
			continue
		}
		p.dev = dev
	}
	return errors.Wrapf(err, "failed to write to Pico-BLDC after %d tries", writeRetries)
}

func (p *PicoBLDC) maybeConfigure(resetMotorSpeeds bool, enableMotors bool) error {
	// Figure out if the config word has changed.
	var configWord uint16 = RegCtrlEnableI2CControl
	if resetMotorSpeeds {
		configWord |= RegCtrlReset
	}
	if enableMotors {
		configWord |= RegCtrlRun
	}
	if p.watchdogEnabled {
		configWord |= RegCtrlWatchdogEnable
	}

	if configWord == p.lastConfigWord && time.Since(p.lastConfigTime) < 100*time.Millisecond {
		// Skip writing config if we've done it recently.
		return nil
	}

	if p.lastConfigWord == 0 {
		// First time.  Figure out calibration...
		calib, err := p.readReg(RegMot3Calib)
		if err != nil {
			return err
		}
		if calib == 0 {
			// Calibration register empty, do a calibration.  The wheels must be
			// off the ground for this.
			p.log.Warn("Pico-BLDC not calibrated, running calibration...")
			configWord |= RegCtrlDoCalib
		}
	}

	if err := p.writeReg(RegCtrl, configWord); err != nil {
		return err
	}

	if configWord&RegCtrlDoCalib != 0 {
		if err := p.waitForCalibration(30 * time.Second); err != nil {
			return err
		}
	}

	if err := p.writeReg(RegStatus, uint16(RegStatusCalibDone)); err != nil {
		return err
	}

	p.lastConfigTime = time.Now()
	p.lastConfigWord = configWord &^ (RegCtrlReset | RegCtrlDoCalib) // Not persistent.
	return nil
}

func (p *PicoBLDC) waitForCalibration(timeout time.Duration) error {
	start := time.Now()
	var lastPrint time.Time
	for {
		status, err := p.readReg(RegStatus)
		if err != nil {
			p.log.WithError(err).Warn("Failed to read status register")
		} else if status&uint16(RegStatusCalibDone) != 0 {
			break
		}
		if time.Since(start) > timeout {
			return ErrCalibrationTimeout
		}
		if time.Since(lastPrint) > time.Second {
			p.log.Infof("Waiting for calibration to finish... Status=%x", status)
			lastPrint = time.Now()
		}
		time.Sleep(10 * time.Millisecond)
	}

	words := logrus.Fields{}
	for r := RegMot0Calib; r <= RegMot3Calib; r++ {
		v, err := p.readReg(r)
		if err != nil {
			return err
		}
		words[RegisterName(r)] = v
	}
	p.log.WithFields(words).Info("Calibration done")
	return nil
}

// Health is a snapshot of the board's power and fault readings.
type Health struct {
	BattVolts    float32
	CurrentAmps  float32
	PowerWatts   float32
	TemperatureC float32
	Status       StatusFlag
}

func (p *PicoBLDC) ReadHealth() (Health, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	var h Health
	for _, r := range []struct {
		reg Register
		lsb float32
		out *float32
	}{
		{RegBattV, BattVLSB, &h.BattVolts},
		{RegCurrent, CurrentLSB, &h.CurrentAmps},
		{RegPower, PowerLSB, &h.PowerWatts},
		{RegTemperature, TemperatureLSB, &h.TemperatureC},
	} {
		raw, err := p.readReg(r.reg)
		if err != nil {
			return h, errors.Wrapf(err, "reading %s", RegisterName(r.reg))
		}
		*r.out = float32(raw) * r.lsb
	}
	raw, err := p.readReg(RegStatus)
	if err != nil {
		return h, errors.Wrap(err, "reading status")
	}
	h.Status = StatusFlag(raw)
	return h, nil
}

func (p *PicoBLDC) writeReg(reg Register, value uint16) error {
	return p.writeWithRetries([]byte{byte(reg), byte(value >> 8), byte(value)})
}

func (p *PicoBLDC) readReg(reg Register) (uint16, error) {
	var buf [2]byte
	err := p.dev.ReadReg(byte(reg), buf[:])
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

func RegisterName(r Register) string {
	switch r {
	case RegBattV:
		return "batt_v"
	case RegCurrent:
		return "current"
	case RegPower:
		return "power"
	case RegTemperature:
		return "temperature"
	case RegMot0Calib, RegMot1Calib, RegMot2Calib, RegMot3Calib:
		return fmt.Sprintf("mot%d_calib", r-RegMot0Calib)
	default:
		return fmt.Sprintf("reg%d", r)
	}
}
