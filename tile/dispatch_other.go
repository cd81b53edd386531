//go:build !amd64 && !arm64

package tile

func init() {
	// Other architectures plan with the scalar width.
	setScalarMode()
}
