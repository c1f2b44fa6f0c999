// Package shared holds helpers used across package boundaries. Its only
// subpackage, testutil, provides log capture and sales table fixtures for
// tests.
package shared
