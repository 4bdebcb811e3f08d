package transport

// USB descriptor identity of the telemetry device. Host tooling finds the
// serial port by vendor and product ID.
const (
	DefaultVendorID     = 0x04B9
	DefaultProductID    = 0x0010
	DefaultDeviceClass  = 0x02 // Communications and CDC Control
	DefaultManufacturer = "DLKJ"
	DefaultProduct      = "Serial port IMU Playground"
	DefaultSerial       = "TEST"
)
