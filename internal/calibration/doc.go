// Package calibration fits the softmax temperature of the diagnosis path
// from a labeled validation batch.
//
// Fit computes the expected calibration error (ECE) of the raw classifier
// at T=1, searches a linear temperature grid for the minimum mean negative
// log-likelihood, optionally refines the grid optimum with a Refiner, and
// reports the ECE at the selected temperature. The selected temperature
// never has a higher NLL than T=1.
//
// Per-sample and per-grid-point work runs on an errgroup; every reduction
// happens in sample order afterwards, so results do not depend on the
// worker count.
package calibration
