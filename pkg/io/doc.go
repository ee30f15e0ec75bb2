// Package io writes and reads the two on-disk forms of a radiograph record.
//
// # PRR Intermediate Format
//
// PRR is a plain-text file meant for sharing. A header of comment lines
// carries the geometry, the array shapes and the mask selections, followed
// by the flux rows and then the reference rows:
//
//	# PRadReader (PRR) Generated Input File v1.01a
//	# Date generated: 2017-08-01 12:00:00.000000
//	# record_id 5f0c...
//	# s2r_cm 0.1
//	# s2d_cm 10
//	# Ep_MeV 14.7
//	# bin_um None
//	# flux2D (2, 3)
//	# flux2D_ref (2, 3)
//	# x-mask 0 % - 100 %
//	# y-mask 0 % - 100 %
//	1.000000000000000000e+00,2.000000000000000000e+00,...
//
// Unset scalars are written as "None". Use [ExportPRR] and [ImportPRR] for
// files, or [WritePRR] and [ReadPRR] for streams. [PRRReader] registers
// the format with the ingestor under the "prr" tag.
//
// # Snapshots
//
// A snapshot is a versioned gob blob of a full record, written atomically
// with [SaveSnapshot] and read back with [LoadSnapshot]. Snapshots are for
// quick reloads by this tool only; share PRR files instead.
package io
