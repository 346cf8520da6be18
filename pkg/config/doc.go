/*
Package config loads previewrc settings from JSON, YAML or HCL files.

	            +-------------+
	            |   Config    |
	            | (Settings)  |
	            +------+------+
	                   |
	     +-------------+-------------+
	     |             |             |
	+----+----+   +----+----+   +----+----+
	|  JSON   |   |  YAML   |   |   HCL   |
	| Parser  |   | Parser  |   | Parser  |
	+---------+   +---------+   +---------+

🔄 Flow:
1. Discover finds .previewrc.{json,yaml,yml,hcl} in a directory, or Load reads an explicit path
2. The parser registered for the file extension decodes it, rejecting unknown fields
3. Validate fills defaults and resolves the workspace root against the config file

When no config file exists, Default is used with the current directory as the
workspace root.

🔍 Example:

	cfg, err := config.Discover(ctx, ".")
	if err != nil {
		return err
	}
	ws, err := workspace.New(cfg.Workspace.Root,
		workspace.WithInclude(cfg.Workspace.Include...),
		workspace.WithIgnore(cfg.Workspace.Ignore...),
	)
*/
package config
