// Package preflight provides readiness checks for the filesystem paths,
// executables, and status store seqpoll depends on.
//
// These checks run in two contexts:
//   - The poll command calls RunAll and CheckTools once at startup. Failing
//     directory checks abort the poll; missing tools are logged as warnings.
//   - The lifecycle engine calls CheckFreeSpace before building raw archives
//     so a nearly full disk fails the branch instead of a half-written archive.
package preflight
