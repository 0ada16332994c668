package main

import (
	"os"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// loadTensor reads a NumPy .npy file.
func loadTensor(path string) (*tensor.Dense, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	t := new(tensor.Dense)
	if err := t.ReadNpy(file); err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return t, nil
}

// saveTensor writes t as a NumPy .npy file.
func saveTensor(path string, t *tensor.Dense) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := t.WriteNpy(file); err != nil {
		file.Close()
		return errors.Wrapf(err, "writing %s", path)
	}
	return file.Close()
}
