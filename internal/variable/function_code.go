// internal/variable/function_code.go
package variable

// FunctionCode is the Modbus operation selector used by a variable or request.
type FunctionCode uint8

const (
	ReadCoils              FunctionCode = 1
	ReadDiscreteInputs     FunctionCode = 2
	ReadHoldingRegisters   FunctionCode = 3
	ReadInputRegisters     FunctionCode = 4
	WriteMultipleCoils     FunctionCode = 15
	WriteMultipleRegisters FunctionCode = 16
)

// Valid reports whether fc is one of the function codes the gateway batches.
func (fc FunctionCode) Valid() bool {
	switch fc {
	case ReadCoils, ReadDiscreteInputs, ReadHoldingRegisters, ReadInputRegisters,
		WriteMultipleCoils, WriteMultipleRegisters:
		return true
	}
	return false
}

// IsWrite reports whether fc writes to the device.
func (fc FunctionCode) IsWrite() bool {
	return fc == WriteMultipleCoils || fc == WriteMultipleRegisters
}

// IsBit reports whether fc addresses the coil/discrete-input space.
func (fc FunctionCode) IsBit() bool {
	return fc == ReadCoils || fc == ReadDiscreteInputs || fc == WriteMultipleCoils
}

var (
	registerCodes = []FunctionCode{ReadHoldingRegisters, ReadInputRegisters, WriteMultipleRegisters}
	allCodes      = []FunctionCode{
		ReadCoils, ReadDiscreteInputs, ReadHoldingRegisters, ReadInputRegisters,
		WriteMultipleCoils, WriteMultipleRegisters,
	}
)

func containsCode(set []FunctionCode, fc FunctionCode) bool {
	for _, c := range set {
		if c == fc {
			return true
		}
	}
	return false
}
