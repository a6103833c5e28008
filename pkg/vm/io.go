package vm

import "io"

// EOFWord is the sentinel INP stores in its register when standard
// input is exhausted.
const EOFWord uint32 = 0xFFFFFFFF

// outputByte writes a single byte to the output stream. The adapter
// does not buffer; each byte reaches the writer immediately.
func (vm *VM) outputByte(b byte) error {
	var buf [1]byte
	buf[0] = b
	if _, err := vm.out.Write(buf[:]); err != nil {
		return err
	}
	if vm.statsEnabled {
		vm.stats.BytesWritten++
	}
	return nil
}

// inputByte reads a single byte from the input stream, blocking until
// one is available. End of input, and any read failure, surface as the
// EOF sentinel.
func (vm *VM) inputByte() uint32 {
	b, err := vm.in.ReadByte()
	if err != nil {
		if err != io.EOF && vm.tracing {
			vm.logger.Sugar().Debugf("input error treated as EOF: %v", err)
		}
		return EOFWord
	}
	if vm.statsEnabled {
		vm.stats.BytesRead++
	}
	return uint32(b)
}
