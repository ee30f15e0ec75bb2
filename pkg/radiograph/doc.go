// Package radiograph turns radiograph files of any supported format into
// one canonical [Record].
//
// An [Ingestor] holds the registry of format readers. [Ingestor.Ingest]
// picks the reader for a format tag (or detects it from the filename),
// parses the file, and returns a Record whose flux and reference maps share
// one shape and "xy" orientation:
//
//	ing := radiograph.NewIngestor(radiograph.WithLogger(logger))
//	rec, err := ing.Ingest(ctx, "blob.out", "carlo", radiograph.WithBinUm(320))
//	if err != nil {
//	    return err
//	}
//	fmt.Println(rec.Missing()) // geometry the file did not carry
//
// Records are values: [Record.Complete], [Record.WithSelection] and
// [Ingestor.Rebin] return new records and never modify their input.
package radiograph
