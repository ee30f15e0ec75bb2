// Package pkg provides the core libraries for pradreader, a normalizer for
// proton radiography data.
//
// # Overview
//
// Proton radiography experiments and simulations produce detector data in
// several incompatible layouts. pradreader reads each of them into one
// canonical record: a binned flux map, a matching reference flux, and the
// geometry needed to reconstruct deflection fields. The pkg directory is
// organized into these areas:
//
//  1. [source] - Format readers (carlo, flash4, mitcsv, delimited text)
//  2. [fluxmap] - Grids, histogram binning, reference flux and masks
//  3. [geometry] - Optional geometry scalars and their validation
//  4. [radiograph] - The canonical record and the ingestion facade
//  5. [io] - PRR intermediate files and quick-reload snapshots
//  6. [plot] - PNG rendering of flux, reference and contrast maps
//  7. [pipeline] - Orchestration (ingest → complete → mask → export)
//  8. [cache] - Fast-reload cache for parsed particle tables
//
// # Architecture
//
// The typical data flow through pradreader:
//
//	Detector file (carlo, FLASH4, scan CSV, text)
//	         ↓
//	    [source] reader (parse, bin, derive reference)
//	         ↓
//	    [radiograph] record (geometry + flux + reference)
//	         ↓
//	    [pipeline] (fill geometry, select mask)
//	         ↓
//	    PRR / snapshot / PNG output
//
// # Quick Start
//
// Read a simulation proton list and write the PRR file:
//
//	ing := radiograph.NewIngestor()
//	rec, err := ing.Ingest(ctx, "blob.out", "carlo", radiograph.WithBinUm(320))
//	if err != nil {
//	    return err
//	}
//	rec, err = rec.Complete(geometry.Record{EpMeV: geometry.Some(14.7)})
//	if err != nil {
//	    return err
//	}
//	if err := rec.Validate(); err != nil {
//	    return err
//	}
//	err = io.ExportPRR(rec.Document(), "input.prr")
//
// # Error Handling
//
// Every package reports failures as [errors.Error] values carrying a code
// (FORMAT_MISMATCH, MISSING_METADATA, GEOMETRY_DEGENERATE, ...) so callers
// can branch with [errors.Is] and show [errors.UserMessage] to users.
package pkg
