// Package scanners runs the installed external scanners (dependency audits,
// semgrep, slither) and converts their output into report sections. Tool
// availability, clean runs, findings, and failures stay distinguishable in
// every ScanResult.
package scanners
