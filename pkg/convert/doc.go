// Package convert provides the high-level conversions between spring test
// binaries and their text and JSON forms.
//
// # Quick Start
//
// The package level functions use a shared Converter with the built-in
// command layout table:
//
//	text, result, err := convert.BinaryToText(data)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%d rows\n", result.Diagnostics.Rows)
//
//	// and back
//	binary, _, err := convert.TextToBinary(text)
//
// # Custom Converter
//
// A Converter can load its command table from a YAML file, log through a
// custom slog.Logger and verify every decoded binary by re-serializing it:
//
//	conv := convert.New(
//	    convert.WithLayoutFile("layouts.yaml"),
//	    convert.WithVerify(true),
//	)
//	result, err := conv.Decode(ctx, data)
//
// # Diagnostics
//
// Every conversion returns a Result carrying springfile.Diagnostics: token
// counts, setup and overflow tokens, unknown codes, dangling row references
// and, when verification is enabled, whether the binary survived a round trip
// byte for byte.
//
// # Text Input
//
// Text inputs may start with a UTF-8 or UTF-16 byte order mark and may use
// CRLF line endings.
//
// # Thread Safety
//
// Converters are safe for concurrent use. Loaded layout tables are cached per
// path behind a read-write mutex.
package convert
