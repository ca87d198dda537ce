package policy

// DefaultAllowedCommands is the stock allowlist: read-mostly PowerShell
// cmdlets plus directory navigation and file creation/copy.
var DefaultAllowedCommands = []string{
	"Get-ChildItem", "Set-Location", "Get-Content", "Get-Location", "New-Item", "Copy-Item",
	"Write-Output", "Select-String", "Get-Item", "Test-Path", "Measure-Object",
	"Sort-Object", "Select-Object", "Where-Object", "Format-Table", "Format-List",
	"Get-Process", "Get-Service", "Get-Date", "Get-Host",
}

// DefaultAliases maps the usual PowerShell aliases onto their cmdlets.
var DefaultAliases = map[string]string{
	"ls":      "Get-ChildItem",
	"dir":     "Get-ChildItem",
	"gci":     "Get-ChildItem",
	"cd":      "Set-Location",
	"chdir":   "Set-Location",
	"sl":      "Set-Location",
	"cat":     "Get-Content",
	"type":    "Get-Content",
	"gc":      "Get-Content",
	"pwd":     "Get-Location",
	"gl":      "Get-Location",
	"mkdir":   "New-Item",
	"ni":      "New-Item",
	"cp":      "Copy-Item",
	"copy":    "Copy-Item",
	"cpi":     "Copy-Item",
	"echo":    "Write-Output",
	"write":   "Write-Output",
	"sls":     "Select-String",
	"gi":      "Get-Item",
	"measure": "Measure-Object",
	"sort":    "Sort-Object",
	"select":  "Select-Object",
	"where":   "Where-Object",
	"ft":      "Format-Table",
	"fl":      "Format-List",
	"ps":      "Get-Process",
	"gps":     "Get-Process",
	"gsv":     "Get-Service",
	"pushd":   "Push-Location",
}

var DefaultDirectoryCommands = []string{"Set-Location", "Push-Location"}

// DefaultForbiddenPatterns refuse command substitution, chaining,
// redirection and background execution. Longer operators come first so the
// rejection names the most specific one.
var DefaultForbiddenPatterns = []Pattern{
	{Name: "backtick", Substring: "`"},
	{Name: "command_substitution", Regex: `\$\(`},
	{Name: "logical_and", Substring: "&&"},
	{Name: "logical_or", Substring: "||"},
	{Name: "pipe", Substring: "|"},
	{Name: "semicolon", Substring: ";"},
	{Name: "append_redirect", Substring: ">>"},
	{Name: "output_redirect", Substring: ">"},
	{Name: "input_redirect", Substring: "<"},
	{Name: "background", Substring: "&"},
	{Name: "newline", Regex: `[\r\n]`},
}

// Default returns the stock spec confined to rootDir.
func Default(rootDir string) Spec {
	s := Spec{
		RootDir:           rootDir,
		TimeoutSeconds:    DefaultTimeoutSeconds,
		AllowedCommands:   DefaultAllowedCommands,
		Aliases:           DefaultAliases,
		DirectoryCommands: DefaultDirectoryCommands,
		ForbiddenPatterns: DefaultForbiddenPatterns,
		ConfineArguments:  true,
	}
	return s.clone()
}
