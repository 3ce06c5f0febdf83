package printer

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/gousb"
)

// USBConnection writes to the bulk OUT endpoint of a USB printer
type USBConnection struct {
	ctx      *gousb.Context
	device   *gousb.Device
	config   *gousb.Config
	iface    *gousb.Interface
	release  func()
	endpoint *gousb.OutEndpoint
	mu       sync.Mutex
}

// ConnectUSB opens the printer with the given vendor and product ID.
// It fails if libusb is not installed or no interface has an OUT endpoint.
func ConnectUSB(vid, pid uint16) (*USBConnection, error) {
	ctx := gousb.NewContext()

	dev, err := ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("failed to open USB device: %w", err)
	}
	if dev == nil {
		ctx.Close()
		return nil, fmt.Errorf("device not found: %04X:%04X", vid, pid)
	}

	conn := &USBConnection{ctx: ctx, device: dev}

	// Most printers expose the bulk endpoint on interface 0; some need the kernel driver detached first.
	iface, done, err := dev.DefaultInterface()
	if err != nil {
		dev.SetAutoDetach(true)
		iface, done, err = dev.DefaultInterface()
	}
	if err == nil {
		if ep := outEndpoint(iface); ep != nil {
			conn.iface, conn.release, conn.endpoint = iface, done, ep
			return conn, nil
		}
		done()
	}

	lastErr := err
	for _, cfgDesc := range dev.Desc.Configs {
		cfg, err := dev.Config(cfgDesc.Number)
		if err != nil {
			lastErr = fmt.Errorf("failed to set config %d: %w", cfgDesc.Number, err)
			continue
		}

		for _, ifaceDesc := range cfgDesc.Interfaces {
			iface, err := claimInterface(cfg, ifaceDesc.Number)
			if err != nil {
				lastErr = err
				continue
			}
			if ep := outEndpoint(iface); ep != nil {
				conn.config, conn.iface, conn.endpoint = cfg, iface, ep
				return conn, nil
			}
			iface.Close()
		}
		cfg.Close()
	}

	dev.Close()
	ctx.Close()

	if lastErr != nil {
		return nil, fmt.Errorf("failed to connect to USB printer: %w", lastErr)
	}
	return nil, fmt.Errorf("no suitable interface/endpoint found for USB printer %04X:%04X", vid, pid)
}

// claimInterface retries once after a short pause for devices still settling after SetConfig
func claimInterface(cfg *gousb.Config, num int) (*gousb.Interface, error) {
	iface, err := cfg.Interface(num, 0)
	if err == nil {
		return iface, nil
	}
	time.Sleep(100 * time.Millisecond)
	iface, err = cfg.Interface(num, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to claim interface %d: %w", num, err)
	}
	return iface, nil
}

func outEndpoint(iface *gousb.Interface) *gousb.OutEndpoint {
	for _, epDesc := range iface.Setting.Endpoints {
		if epDesc.Direction != gousb.EndpointDirectionOut {
			continue
		}
		if ep, err := iface.OutEndpoint(epDesc.Number); err == nil {
			return ep
		}
	}
	return nil
}

// Write sends raw printer commands
func (c *USBConnection) Write(data []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, err := c.endpoint.Write(data)
	if err != nil {
		return n, fmt.Errorf("failed to write to USB printer: %w", err)
	}
	return n, nil
}

// Close releases the interface, device and libusb context
func (c *USBConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.release != nil {
		c.release()
	} else {
		if c.iface != nil {
			c.iface.Close()
		}
		if c.config != nil {
			c.config.Close()
		}
	}

	var err error
	if c.device != nil {
		err = c.device.Close()
	}
	if c.ctx != nil {
		c.ctx.Close()
	}
	return err
}
