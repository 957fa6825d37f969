// Package sanitizer provides input normalization for reservation data.
//
// All normalization functions are idempotent - applying them multiple times
// produces the same result. Functions handle invalid input gracefully,
// typically by returning the input unchanged or an empty string rather than
// an error.
//
// Normalization includes:
//   - Phone numbers: Convert to E.164 format (+[country][number])
//   - Contact refs: E.164 when the ref is a phone number, whitespace
//     normalization otherwise
//   - Strings: Collapse whitespace, trim leading/trailing spaces
package sanitizer
