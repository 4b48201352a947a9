package config

// Schema is the JSON schema for validating configuration files
const Schema = `{
    "$schema": "http://json-schema.org/draft-07/schema#",
    "type": "object",
    "properties": {
        "env_file": {
            "type": "string",
            "description": "Dotenv file to sync (defaults to .env)"
        },
        "max_concurrent_pushes": {
            "type": "integer",
            "minimum": 1
        },
        "snapshot_keep": {
            "type": "integer",
            "minimum": 0,
            "description": "Number of timestamped snapshots prune retains"
        },
        "log_level": {
            "type": "string",
            "enum": ["debug", "info", "warn", "error"]
        },
        "log_format": {
            "type": "string",
            "enum": ["json", "console"]
        },
        "profiles": {
            "type": "array",
            "minItems": 1,
            "items": {
                "type": "object",
                "properties": {
                    "name": {
                        "type": "string",
                        "pattern": "^[a-zA-Z0-9_-]+$"
                    },
                    "type": {
                        "type": "string",
                        "enum": ["presigned", "s3", "backblaze", "sftp", "local"]
                    },
                    "enabled": {
                        "type": "boolean"
                    },
                    "base_dir": {
                        "type": "string"
                    },
                    "options": {
                        "type": "object"
                    }
                },
                "required": ["name", "type"]
            }
        }
    },
    "required": ["profiles"]
}`
