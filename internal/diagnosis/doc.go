// Package diagnosis turns a raw classifier output vector into a calibrated
// disease diagnosis.
//
// The online path is Normalize -> EntropyRatio -> Engine.Decide, wrapped by
// Diagnoser for callers that hold a LabelSet and a Params snapshot. Every
// function here is pure over immutable inputs and safe for concurrent use.
//
// Dependency rule: no I/O. Label files, configuration and persistence live
// in internal/config and internal/db.
package diagnosis
