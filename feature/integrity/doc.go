// Package integrity provides health checks for a collection and its infrastructure.
//
// # Checks Provided
//
//   - Layers: manifest category directories exist, categories are not empty,
//     no two files in a category normalize to the same name.
//   - Metadata: every record parses and its traits resolve (a dry run, nothing is rendered).
//   - Output: the output directory exists and is writable.
//   - Bucket: the publish bucket and its folders exist (when storage is enabled).
//   - Schema: the run history tables have every expected column (when the database is enabled).
//
// # HTTP Endpoints
//
//   - GET /integrity : Runs all checks.
//   - GET /integrity/layers : Runs layer check (supports ?fix=true).
//   - GET /integrity/metadata : Runs metadata check.
//   - GET /integrity/output : Runs output check.
//   - GET /integrity/bucket : Runs bucket check (supports ?fix=true).
//   - GET /integrity/schema : Runs schema check (supports ?fix=true).
package integrity
