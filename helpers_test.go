package msgloop

import "os"

// newTestPipe returns a pair of non-blocking file descriptors connected by
// an os.Pipe, for use as a readable/writable Handle pair in tests.
func newTestPipe() (r, w int, err error) {
	pr, pw, err := os.Pipe()
	if err != nil {
		return 0, 0, err
	}
	if err := setNonblocking(int(pr.Fd())); err != nil {
		pr.Close()
		pw.Close()
		return 0, 0, err
	}
	if err := setNonblocking(int(pw.Fd())); err != nil {
		pr.Close()
		pw.Close()
		return 0, 0, err
	}
	return int(pr.Fd()), int(pw.Fd()), nil
}
