// Package fluxmap provides the 2D flux array type and the histogramming
// engine shared by every list-based radiograph reader.
//
// # Orientation
//
// A [Grid] is stored row-major with "xy" indexing: the first axis is the
// vertical (y) position on the detector and the second axis is the
// horizontal (x) position. Row 0 is the bottom of the physical detector
// image. Every reader returns grids in this orientation; pre-binned formats
// whose files list the top row first flip on load with [Grid.FlipUD].
//
// # Binning
//
// [Bin] histograms a list of detector-plane [Point] values (cm, origin at the
// detector center) into square bins:
//
//	h, err := fluxmap.Bin(points, 5.0, 0.032) // 5 cm detector, 320 um bins
//	if err != nil {
//	    return err
//	}
//	counts := h.Flux   // protons per bin
//	fluence := h.Areal // protons per cm^2
//
// The bin count per axis is floor(width/bin). Points outside
// [-width/2, -width/2 + n*bin) on either axis are dropped without error.
//
// # Reference Flux
//
// Three reference models are provided, one per family of readers:
// [UniformMean] for pre-binned images, [Uniform] for an analytic mean, and
// [Disk] for an undeflected beam footprint of known radius.
package fluxmap
