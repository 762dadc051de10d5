// Package core provides the tabular data pipeline behind dataelevate.
//
// This package holds all domain logic independent of any UI or transport
// layer. The web handlers and the CLI call the same functions.
//
// # Stages
//
// A file moves strictly forward through the stages, each usable on its own:
//
//  1. [Load] turns an [UploadedFile] (.csv or .xlsx) into a [Table]
//  2. [Inspect] reports shape, a preview, per-column statistics and
//     missing counts without touching the table
//  3. [Table.RemoveDuplicates] and [Table.FillMissingNumeric] clean in place
//  4. [Table.SelectColumns] restricts the table to an ordered subset
//  5. [BuildChart] and [RenderChart] plot the numeric columns
//  6. [Export] serializes the table to CSV or Excel bytes
//
// [Pipeline.Run] chains the stages over a batch of files. A file that
// fails is reported and skipped; the remaining files still run.
//
// # Tables
//
// A [Table] wraps a gota DataFrame. Each column carries one inferred
// [ColumnKind]: Number, Text, Boolean or Date. Missing cells are gota NA
// elements and export as empty cells.
//
//	t, err := core.Load(core.NewUploadedFile("sales.csv", data))
//	if err != nil {
//	    return err
//	}
//	removed, _ := t.RemoveDuplicates()
//	d, err := core.Export(t, core.ExportSpec{Format: core.ExportXLSX, SourceName: "sales.csv"})
//
// # Error Handling
//
// Loader failures are typed ([UnsupportedFormatError], [ParseError]).
// Visualization outcomes such as [ErrNoNumericData] are notices, see
// [IsNotice]. [MapError] turns any error into a [UserMessage] with a
// support code.
package core
