package main

import (
	"io"
	"os"
	"time"

	snap2pdf "github.com/alnah/go-snap2pdf"
)

// Environment holds injectable dependencies for testability.
// Includes I/O, time and the capturer pool factory.
type Environment struct {
	Now    func() time.Time
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// NewPool builds the pool a capture batch runs on.
	NewPool func(size int, opts ...snap2pdf.Option) Pool
}

// DefaultEnv returns the production environment backed by headless Chrome.
func DefaultEnv() *Environment {
	return &Environment{
		Now:    time.Now,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		NewPool: func(size int, opts ...snap2pdf.Option) Pool {
			return &poolAdapter{pool: snap2pdf.NewCapturerPool(size, opts...)}
		},
	}
}
