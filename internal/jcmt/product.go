package jcmt

import (
	"fmt"
	"strings"
)

// ProductOptions carries the backend-specific inputs to ProductID. SCUBA-2
// products are distinguished by filter; heterodyne products by rest
// frequency, bandwidth mode, and subsystem number.
type ProductOptions struct {
	RestFreqHz float64
	BWMode     string
	SubsysNr   string
	Filter     string
}

// ProductID composes the plane productID for one subsystem of a product.
// SCUBA-2 productIDs look like "reduced-850um"; heterodyne productIDs look
// like "cube-345796MHz-250MHzx4096-1". The product is the data product
// label ("raw", "reduced", "cube", ...); missing inputs for the backend are
// an error because the resulting productID would collide across subsystems.
func ProductID(backend, product string, opts ProductOptions) (string, error) {
	if product == "" {
		return "", fmt.Errorf("productID for backend %q: product is not defined", backend)
	}
	if NormalizeBackend(backend) == "SCUBA-2" {
		return continuumProductID(product, opts.Filter)
	}
	return heterodyneProductID(backend, product, opts)
}

func continuumProductID(product, filter string) (string, error) {
	if filter == "" {
		return "", fmt.Errorf("productID for SCUBA-2 product %q: filter is not defined", product)
	}
	if label, ok := tables.Filters[strings.TrimSpace(filter)]; ok {
		return product + "-" + label, nil
	}
	return product + "-" + strings.TrimSpace(filter), nil
}

func heterodyneProductID(backend, product string, opts ProductOptions) (string, error) {
	switch {
	case opts.RestFreqHz == 0:
		return "", fmt.Errorf("productID for backend %q product %q: restfreq is not defined", backend, product)
	case opts.BWMode == "":
		return "", fmt.Errorf("productID for backend %q product %q: bwmode is not defined", backend, product)
	case opts.SubsysNr == "":
		return "", fmt.Errorf("productID for backend %q product %q: subsysnr is not defined", backend, product)
	}
	return fmt.Sprintf("%s-%.0fMHz-%s-%s",
		product, opts.RestFreqHz*1.0e-6, opts.BWMode, opts.SubsysNr), nil
}
