package msgloop

import (
	"io"
	"os"
)

// BytesFromVMO copies the full contents of a mapped SharedVMO into a new
// byte slice.
func BytesFromVMO(v *SharedVMO) ([]byte, error) {
	mapping, err := v.Map()
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(mapping))
	copy(out, mapping)
	return out, nil
}

// VMOFromBytes creates an unlinked temporary file sized to hold data,
// writes data into it, and wraps it in a SharedVMO ready for Map. The
// caller owns the returned VMO's lifetime via Close.
func VMOFromBytes(data []byte) (*SharedVMO, error) {
	f, err := os.CreateTemp("", "msgloop-vmo-*")
	if err != nil {
		return nil, err
	}
	name := f.Name()
	defer os.Remove(name)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return nil, err
	}
	fd := int(f.Fd())
	return NewSharedVMO(fd, len(data), 0x1|0x2), nil // PROT_READ|PROT_WRITE
}

// BlockingCopyToBuffer synchronously drains fd, which must be in blocking
// mode, into buf, growing it as needed, until EOF. It is for use outside a
// Loop entirely (e.g. during setup, before a handle is handed to a
// drainer), not as a substitute for SocketDrainer on a registered handle.
func BlockingCopyToBuffer(fd int, buf *[]byte) error {
	chunk := make([]byte, 64*1024)
	for {
		n, err := readFD(fd, chunk)
		if n > 0 {
			*buf = append(*buf, chunk[:n]...)
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if n == 0 {
			return nil
		}
	}
}
