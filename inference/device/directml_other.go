//go:build !windows

package device

func loadDirectML() (string, error) {
	return "", ErrUnavailable
}
