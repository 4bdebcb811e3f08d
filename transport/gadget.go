//go:build !tinygo

package transport

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
)

// ConfigFSRoot is where Linux mounts the USB gadget configfs tree.
const ConfigFSRoot = "/sys/kernel/config/usb_gadget"

// Gadget describes a single-function CDC-ACM USB device. Once bound to a
// device controller the kernel exposes it as /dev/ttyGS<n>.
type Gadget struct {
	Name         string // directory under the configfs root
	VendorID     uint16
	ProductID    uint16
	DeviceClass  uint8
	Manufacturer string
	Product      string
	Serial       string
	UDC          string // device controller to bind; empty leaves it unbound
}

// DefaultGadget returns the descriptor set used by imuplayground.
func DefaultGadget() Gadget {
	return Gadget{
		Name:         "imuplayground",
		VendorID:     DefaultVendorID,
		ProductID:    DefaultProductID,
		DeviceClass:  DefaultDeviceClass,
		Manufacturer: DefaultManufacturer,
		Product:      DefaultProduct,
		Serial:       DefaultSerial,
	}
}

const (
	langUS   = "strings/0x409"
	config1  = "configs/c.1"
	function = "functions/acm.usb0"
)

// writeAttr writes one configfs attribute.
var writeAttr = func(path, value string) error {
	return ioutil.WriteFile(path, []byte(value+"\n"), 0644)
}

// Bound returns the device controller the gadget below root is bound to,
// or "" when it is unbound or absent.
func (g Gadget) Bound(root string) string {
	b, err := ioutil.ReadFile(filepath.Join(root, g.Name, "UDC"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

// Configure creates the gadget below root and binds it when UDC is set.
// A bound gadget is unbound first, the kernel rejects descriptor writes
// while it is bound.
func (g Gadget) Configure(root string) error {
	dir := filepath.Join(root, g.Name)
	if udc := g.Bound(root); udc != "" {
		if err := writeAttr(filepath.Join(dir, "UDC"), ""); err != nil {
			return fmt.Errorf("gadget: unbind %s: %v", udc, err)
		}
	}
	for _, d := range []string{
		dir,
		filepath.Join(dir, langUS),
		filepath.Join(dir, config1, langUS),
		filepath.Join(dir, function),
	} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("gadget: %v", err)
		}
	}

	attrs := []struct{ name, value string }{
		{"idVendor", fmt.Sprintf("0x%04x", g.VendorID)},
		{"idProduct", fmt.Sprintf("0x%04x", g.ProductID)},
		{"bDeviceClass", fmt.Sprintf("0x%02x", g.DeviceClass)},
		{"bcdUSB", "0x0200"},
		{filepath.Join(langUS, "manufacturer"), g.Manufacturer},
		{filepath.Join(langUS, "product"), g.Product},
		{filepath.Join(langUS, "serialnumber"), g.Serial},
		{filepath.Join(config1, langUS, "configuration"), "CDC ACM"},
		{filepath.Join(config1, "MaxPower"), "250"},
	}
	for _, a := range attrs {
		if err := writeAttr(filepath.Join(dir, a.name), a.value); err != nil {
			return fmt.Errorf("gadget: %v", err)
		}
	}

	link := filepath.Join(dir, config1, filepath.Base(function))
	if _, err := os.Lstat(link); os.IsNotExist(err) {
		if err := os.Symlink(filepath.Join(dir, function), link); err != nil {
			return fmt.Errorf("gadget: %v", err)
		}
	}

	if g.UDC == "" {
		return nil
	}
	if err := writeAttr(filepath.Join(dir, "UDC"), g.UDC); err != nil {
		return fmt.Errorf("gadget: bind %s: %v", g.UDC, err)
	}
	return nil
}

// Remove unbinds and tears down the gadget in the order configfs requires.
func (g Gadget) Remove(root string) error {
	dir := filepath.Join(root, g.Name)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}
	if g.Bound(root) != "" {
		if err := writeAttr(filepath.Join(dir, "UDC"), ""); err != nil {
			return fmt.Errorf("gadget: unbind: %v", err)
		}
	}
	steps := []string{
		filepath.Join(dir, config1, filepath.Base(function)),
		filepath.Join(dir, config1, langUS),
		filepath.Join(dir, config1),
		filepath.Join(dir, function),
		filepath.Join(dir, langUS),
		dir,
	}
	for _, p := range steps {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("gadget: %v", err)
		}
	}
	return nil
}

// FirstUDC returns the first device controller listed under sysfs.
func FirstUDC() (string, error) {
	entries, err := ioutil.ReadDir("/sys/class/udc")
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", fmt.Errorf("gadget: no USB device controller")
	}
	return entries[0].Name(), nil
}
