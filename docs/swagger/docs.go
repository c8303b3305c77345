// Package swagger registers the OpenAPI document served at /swagger. Keep
// it in step with the swag annotations on the feature handlers.
package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/integrity": {
            "get": {
                "description": "Performs all available integrity checks (Layers, Metadata, Output, Bucket, Schema). The metadata check parses every record and may take a while.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["integrity"],
                "summary": "Run All Integrity Checks",
                "responses": {
                    "200": {"description": "Combined Report", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/integrity/bucket": {
            "get": {
                "description": "Checks that the publish bucket and its folders exist. Optionally creates them.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["integrity"],
                "summary": "Check Bucket",
                "parameters": [
                    {"type": "boolean", "description": "Create the bucket and missing folders", "name": "fix", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Bucket Report", "schema": {"type": "object", "additionalProperties": true}},
                    "500": {"description": "Internal Server Error", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "503": {"description": "Storage disabled", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/integrity/layers": {
            "get": {
                "description": "Checks manifest category directories, empty categories and files that normalize to the same name. Optionally creates missing category directories.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["integrity"],
                "summary": "Check Layers",
                "parameters": [
                    {"type": "boolean", "description": "Create missing category directories", "name": "fix", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Layer Report", "schema": {"$ref": "#/definitions/checks.LayerReport"}},
                    "500": {"description": "Internal Server Error", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/integrity/metadata": {
            "get": {
                "description": "Parses every metadata record and resolves its traits without rendering. Reports unparseable files, categories without a layer directory, unresolved traits and duplicate token ids.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["integrity"],
                "summary": "Check Metadata",
                "responses": {
                    "200": {"description": "Metadata Report", "schema": {"$ref": "#/definitions/checks.MetadataReport"}},
                    "500": {"description": "Internal Server Error", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/integrity/output": {
            "get": {
                "description": "Verifies that the output directory exists and is writable.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["integrity"],
                "summary": "Check Output",
                "responses": {
                    "200": {"description": "Output Report", "schema": {"$ref": "#/definitions/checks.OutputReport"}}
                }
            }
        },
        "/integrity/schema": {
            "get": {
                "description": "Checks that the run history tables exist with every expected column. Optionally migrates them.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["integrity"],
                "summary": "Check History Schema",
                "parameters": [
                    {"type": "boolean", "description": "Migrate the history tables", "name": "fix", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Schema Report", "schema": {"$ref": "#/definitions/checks.SchemaReport"}},
                    "500": {"description": "Internal Server Error", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "503": {"description": "Database disabled", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/rebuild/layers": {
            "get": {
                "description": "Lists the categories of the layer index, or the candidates of one category.",
                "produces": ["application/json"],
                "tags": ["rebuild"],
                "summary": "List Layers",
                "parameters": [
                    {"type": "string", "description": "Category to list candidates for", "name": "category", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Layer listing", "schema": {"type": "object", "additionalProperties": true}},
                    "404": {"description": "Unknown category", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "500": {"description": "Internal Server Error", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/rebuild/reconcile": {
            "get": {
                "description": "Compares metadata records, rebuilt images and published images and lists the repairs the selected options would run. Nothing is changed.",
                "produces": ["application/json"],
                "tags": ["rebuild"],
                "summary": "Reconcile Plan",
                "parameters": [
                    {"type": "boolean", "description": "Plan renders for missing or stale images", "name": "rebuild", "in": "query"},
                    {"type": "boolean", "description": "Plan uploads for unpublished images", "name": "publish", "in": "query"},
                    {"type": "boolean", "description": "Plan deletion of orphaned images", "name": "purge", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Plan", "schema": {"$ref": "#/definitions/rebuild.ReconcileResponse"}},
                    "400": {"description": "Invalid request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "500": {"description": "Internal Server Error", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            },
            "post": {
                "description": "Plans and runs the selected repairs. Actions only run with confirmed=true and dry_run=false.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["rebuild"],
                "summary": "Apply Reconcile",
                "parameters": [
                    {"description": "Repairs to run", "name": "options", "in": "body", "required": true, "schema": {"$ref": "#/definitions/reconcile.Options"}}
                ],
                "responses": {
                    "200": {"description": "Plan and executed count", "schema": {"$ref": "#/definitions/rebuild.ReconcileResponse"}},
                    "400": {"description": "Invalid request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "409": {"description": "A rebuild is in progress", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "500": {"description": "Internal Server Error", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/rebuild/reconcile/{id}": {
            "get": {
                "description": "Shows whether one token has a metadata record, a rebuilt image and a published copy.",
                "produces": ["application/json"],
                "tags": ["rebuild"],
                "summary": "Reconcile Token",
                "parameters": [
                    {"type": "string", "description": "Token ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "Token presence", "schema": {"$ref": "#/definitions/reconcile.Result"}},
                    "500": {"description": "Internal Server Error", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/rebuild/resolve": {
            "get": {
                "description": "Resolves a category and value against the layer index, as a rebuild would.",
                "produces": ["application/json"],
                "tags": ["rebuild"],
                "summary": "Resolve Trait",
                "parameters": [
                    {"type": "string", "description": "Trait category", "name": "category", "in": "query", "required": true},
                    {"type": "string", "description": "Trait value", "name": "value", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "Resolution", "schema": {"$ref": "#/definitions/rebuild.ResolveResponse"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "404": {"description": "Not resolved", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/rebuild/runs": {
            "get": {
                "description": "Lists recorded runs, newest first.",
                "produces": ["application/json"],
                "tags": ["rebuild"],
                "summary": "List Runs",
                "parameters": [
                    {"type": "integer", "description": "Maximum number of runs", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Runs", "schema": {"type": "array", "items": {"$ref": "#/definitions/rebuild.RunRecord"}}},
                    "503": {"description": "History disabled", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/rebuild/runs/{id}": {
            "get": {
                "description": "Returns one recorded run with its token outcomes.",
                "produces": ["application/json"],
                "tags": ["rebuild"],
                "summary": "Get Run",
                "parameters": [
                    {"type": "string", "description": "Run ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "Run", "schema": {"$ref": "#/definitions/rebuild.RunRecord"}},
                    "404": {"description": "Not Found", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "503": {"description": "History disabled", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/rebuild/start": {
            "post": {
                "description": "Starts a rebuild in the background. Empty request fields take the configured defaults.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["rebuild"],
                "summary": "Start Rebuild",
                "parameters": [
                    {"description": "Run settings", "name": "request", "in": "body", "schema": {"$ref": "#/definitions/rebuild.Request"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "409": {"description": "Already running", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "422": {"description": "Missing input", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "500": {"description": "Internal Server Error", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/rebuild/status": {
            "get": {
                "description": "Returns the progress of the current or last run.",
                "produces": ["application/json"],
                "tags": ["rebuild"],
                "summary": "Rebuild Status",
                "parameters": [
                    {"type": "boolean", "description": "Include the full summary", "name": "summary", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Snapshot", "schema": {"$ref": "#/definitions/rebuild.Snapshot"}}
                }
            }
        },
        "/rebuild/stop": {
            "post": {
                "description": "Requests cancellation of the running rebuild. Tokens in flight complete.",
                "produces": ["application/json"],
                "tags": ["rebuild"],
                "summary": "Stop Rebuild",
                "responses": {
                    "200": {"description": "Stopping", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "409": {"description": "Not running", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        }
    },
    "definitions": {
        "checks.LayerReport": {
            "type": "object",
            "properties": {
                "root": {"type": "string"},
                "status": {"type": "string"},
                "categories": {"type": "array", "items": {"type": "object"}},
                "missing_dirs": {"type": "array", "items": {"type": "string"}},
                "empty": {"type": "array", "items": {"type": "string"}},
                "errors": {"type": "array", "items": {"type": "string"}}
            }
        },
        "checks.MetadataReport": {
            "type": "object",
            "properties": {
                "dir": {"type": "string"},
                "status": {"type": "string"},
                "files": {"type": "integer"},
                "tokens": {"type": "integer"},
                "unparseable": {"type": "object", "additionalProperties": {"type": "string"}},
                "unknown_categories": {"type": "object", "additionalProperties": {"type": "integer"}},
                "unresolved": {"type": "object", "additionalProperties": {"type": "integer"}},
                "duplicate_ids": {"type": "array", "items": {"type": "string"}}
            }
        },
        "checks.OutputReport": {
            "type": "object",
            "properties": {
                "dir": {"type": "string"},
                "exists": {"type": "boolean"},
                "writable": {"type": "boolean"},
                "error": {"type": "string"}
            }
        },
        "checks.SchemaReport": {
            "type": "object",
            "properties": {
                "matched": {"type": "boolean"},
                "tables": {"type": "object", "additionalProperties": {"$ref": "#/definitions/checks.TableReport"}},
                "errors": {"type": "array", "items": {"type": "string"}}
            }
        },
        "checks.TableReport": {
            "type": "object",
            "properties": {
                "exists": {"type": "boolean"},
                "missing_columns": {"type": "array", "items": {"type": "string"}},
                "status": {"type": "string"}
            }
        },
        "rebuild.ReconcileResponse": {
            "type": "object",
            "properties": {
                "plan": {"$ref": "#/definitions/reconcile.Plan"},
                "executed": {"type": "integer"}
            }
        },
        "rebuild.Request": {
            "type": "object",
            "properties": {
                "metadata_dir": {"type": "string"},
                "layers_dir": {"type": "string"},
                "output_dir": {"type": "string"},
                "manifest": {"type": "string"},
                "width": {"type": "integer"},
                "height": {"type": "integer"},
                "fit": {"type": "string"},
                "background": {"type": "string"},
                "format": {"type": "string"},
                "workers": {"type": "integer"},
                "skip_existing": {"type": "boolean"},
                "prefix_separator": {"type": "string"},
                "skip_values": {"type": "array", "items": {"type": "string"}},
                "summary_file": {"type": "string"}
            }
        },
        "rebuild.ResolveResponse": {
            "type": "object",
            "properties": {
                "category": {"type": "string"},
                "value": {"type": "string"},
                "key": {"type": "string"},
                "candidate": {"type": "object"},
                "alternatives": {"type": "array", "items": {"type": "object"}}
            }
        },
        "rebuild.RunRecord": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "status": {"type": "string"},
                "total": {"type": "integer"},
                "processed": {"type": "integer"},
                "success": {"type": "integer"},
                "partial": {"type": "integer"},
                "failed": {"type": "integer"},
                "skipped": {"type": "integer"},
                "started_at": {"type": "string"},
                "finished_at": {"type": "string"}
            }
        },
        "rebuild.Snapshot": {
            "type": "object",
            "properties": {
                "run_id": {"type": "string"},
                "state": {"type": "string"},
                "total": {"type": "integer"},
                "done": {"type": "integer"},
                "percent": {"type": "number"},
                "current": {"type": "string"}
            }
        },
        "reconcile.Action": {
            "type": "object",
            "properties": {
                "type": {"type": "string"},
                "key": {"type": "string"},
                "path": {"type": "string"},
                "reason": {"type": "string"}
            }
        },
        "reconcile.Options": {
            "type": "object",
            "properties": {
                "dry_run": {"type": "boolean"},
                "rebuild": {"type": "boolean"},
                "publish": {"type": "boolean"},
                "purge": {"type": "boolean"},
                "confirmed": {"type": "boolean"}
            }
        },
        "reconcile.Plan": {
            "type": "object",
            "properties": {
                "results": {"type": "array", "items": {"$ref": "#/definitions/reconcile.Result"}},
                "actions": {"type": "array", "items": {"$ref": "#/definitions/reconcile.Action"}},
                "summary": {"$ref": "#/definitions/reconcile.PlanSummary"}
            }
        },
        "reconcile.PlanSummary": {
            "type": "object",
            "properties": {
                "total_items": {"type": "integer"},
                "missing_output": {"type": "integer"},
                "missing_bucket": {"type": "integer"},
                "orphaned": {"type": "integer"},
                "stale": {"type": "integer"},
                "mismatches": {"type": "integer"},
                "rebuild_actions": {"type": "integer"},
                "publish_actions": {"type": "integer"},
                "purge_actions": {"type": "integer"}
            }
        },
        "reconcile.Result": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "metadata_present": {"type": "boolean"},
                "output_present": {"type": "boolean"},
                "bucket_present": {"type": "boolean"},
                "stale": {"type": "boolean"},
                "mismatch": {"type": "array", "items": {"type": "string"}},
                "paths": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {
            "type": "apiKey",
            "name": "X-API-Key",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Regen API",
	Description:      "API for rebuilding NFT collection images from metadata and trait layers.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
