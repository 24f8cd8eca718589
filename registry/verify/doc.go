// Package verify provides structural validation for page files.
//
// # Overview
//
// The checks work on the raw bytes of a page, so they can run against a
// mapped file without a registry:
//
//	data, _ := os.ReadFile("City_District.prp")
//	if err := verify.AllInvariants(data); err != nil {
//	    fmt.Printf("page invalid: %v\n", err)
//	}
//
// Validation categories:
//   - PageHeader: magic, major version, section offsets
//   - Checksum: stored checksum equals file size minus data start
//   - IndexStructure: counts, name references, record ranges, sort order
//   - Digest: BLAKE3-256 of the data section matches the header
//
// # ValidationError
//
// Every check returns *ValidationError on failure:
//
//	var verr *verify.ValidationError
//	if errors.As(err, &verr) {
//	    fmt.Printf("%s at 0x%X: %s\n", verr.Type, verr.Offset, verr.Message)
//	}
//
// Offset is -1 when the problem has no single location.
//
// The registry runs AllInvariants on every page during VerifyPages when deep
// verification is enabled.
package verify
