// Command smap queries Source Map v3 files.
//
// Usage:
//
//	smap [flags] lookup <map> <line:column>
//	smap [flags] reverse <map> <source> <line:column>
//	smap [flags] sources <map>
//	smap [flags] mappings <map> [--line N]
//	smap version
//
// Lines and columns are zero-based. Columns count UTF-16 code units, the
// same way they are encoded in the map.
//
// Flags:
//
//	-c, --config <file>         Use specific config file
//	--no-config                 Ignore config files
//	--base-url <url>            Resolve sources against this URL instead of the map location
//	--compose-with <map>        Map the sources of <map> further through another map
//	--log-level <level>         Log level (debug, info, warn, error)
//	--log-format <format>       Log format (text, json)
//	--no-color                  Disable colored output
//
// Config file:
//
//	smap looks for smap.json, .smaprc or .smaprc.json in the current
//	directory and parent directories. SMAP_* environment variables override
//	the config file, and flags override both.
//
// Example smap.json:
//
//	{
//	    "trimFileScheme": true,
//	    "caseSensitivePaths": false,
//	    "cacheSize": 64,
//	    "logLevel": "info"
//	}
package main

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	newRootCommand(newGlobalState()).execute()
}
