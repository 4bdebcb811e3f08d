//go:build !tinygo

package transport

import (
	"fmt"
	"io/ioutil"
	"path/filepath"
	"strconv"
	"strings"
)

// SysfsRoot is where Linux exposes device attributes.
const SysfsRoot = "/sys"

// FindPort returns the device node of the first tty whose USB device
// reports vid and pid, e.g. /dev/ttyACM0.
func FindPort(sysfs string, vid, pid uint16) (string, error) {
	ttys, err := filepath.Glob(filepath.Join(sysfs, "class", "tty", "*"))
	if err != nil {
		return "", err
	}
	for _, tty := range ttys {
		dev, err := filepath.EvalSymlinks(filepath.Join(tty, "device"))
		if err != nil {
			continue
		}
		// The tty hangs off a USB interface; the IDs live on its parent.
		usbDev := filepath.Dir(dev)
		if readHex(filepath.Join(usbDev, "idVendor")) == int64(vid) &&
			readHex(filepath.Join(usbDev, "idProduct")) == int64(pid) {
			return filepath.Join("/dev", filepath.Base(tty)), nil
		}
	}
	return "", fmt.Errorf("transport: no tty with USB ID %04x:%04x", vid, pid)
}

func readHex(path string) int64 {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return -1
	}
	v, err := strconv.ParseInt(strings.TrimSpace(string(b)), 16, 32)
	if err != nil {
		return -1
	}
	return v
}
