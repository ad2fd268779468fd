package main

import (
	"fmt"
	"io"

	snap2pdf "github.com/alnah/go-snap2pdf"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: snap2pdf <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  capture    Capture page elements to PDF or PNG")
	fmt.Fprintln(w, "  presets    List request presets")
	fmt.Fprintln(w, "  doctor     Check Chrome and the environment")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'snap2pdf help <command>' for details on a specific command.")
}

// printCaptureUsage prints usage for the capture command.
func printCaptureUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: snap2pdf capture [flags] <source>...")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Capture the element matched by --selector in each source.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Arguments:")
	fmt.Fprintln(w, "  source    http(s) or file:// URL, local HTML file, or - for HTML on stdin")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Input/Output:")
	fmt.Fprintln(w, "  -o, --output <dir>        Output directory, or - for stdout")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "  -w, --workers <n>         Parallel captures (0 = auto)")
	fmt.Fprintln(w, "      --preset <name>       Preset: coupon, invoice, redeemed")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Source:")
	fmt.Fprintln(w, "  -s, --selector <css>      Element to capture (default: body)")
	fmt.Fprintln(w, "      --fixed <WxH>         Fixed size in CSS pixels, or natural")
	fmt.Fprintln(w, "      --base-url <url|dir>  Base for relative asset references")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Raster:")
	fmt.Fprintf(w, "      --scale <f>           Pixels per CSS pixel (default: %g, max %g)\n", snap2pdf.DefaultScale, snap2pdf.MaxScale)
	fmt.Fprintln(w, "      --max-dimension <n>   Longest raster side in pixels")
	fmt.Fprintf(w, "      --background <hex>    Fill behind transparency (default: %s)\n", snap2pdf.DefaultBackground)
	fmt.Fprintf(w, "      --asset-timeout <d>   Wait bound for images (default: %s)\n", snap2pdf.DefaultAssetTimeout)
	fmt.Fprintln(w, "      --allow-tainted       Skip the cross-origin image check")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Page:")
	fmt.Fprintln(w, "  -p, --page-size <s>       a4, a5, a6, letter, legal or WxH in mm")
	fmt.Fprintln(w, "      --orientation <s>     portrait, landscape")
	fmt.Fprintf(w, "      --margin <mm>         Margin on all sides (0-%g)\n", snap2pdf.MaxMargin)
	fmt.Fprintln(w, "      --fit <policy>        stretch-fit-width, contain-centered, exact-fill")
	fmt.Fprintln(w, "      --paginate            Split tall captures over several pages")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Artifact:")
	fmt.Fprintf(w, "  -n, --name <tmpl>         Filename template (default: %s)\n", snap2pdf.DefaultFilename)
	fmt.Fprintln(w, "                            Placeholders: {id}, {date[:fmt]}, {time[:fmt]}")
	fmt.Fprintln(w, "                            Tokens: YYYY, YY, MMMM, MMM, MM, M, DD, D, HH, mm, ss")
	fmt.Fprintln(w, "  -f, --format <s>          pdf, png")
	fmt.Fprintln(w, "      --id <s>              Capture identifier (default: random UUID)")
	fmt.Fprintln(w, "      --title <s>           PDF title metadata")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Browser:")
	fmt.Fprintln(w, "  -t, --timeout <d>         Page load timeout (e.g., 30s, 2m)")
	fmt.Fprintln(w, "      --viewport-width <n>  Layout width in CSS pixels")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output Control:")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Show pipeline logs and timing")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Settings precedence: flags > SNAP2PDF_* env > config file > preset > defaults.")
}

// printPresets lists the built-in presets.
func printPresets(w io.Writer) {
	for _, p := range snap2pdf.Presets() {
		fmt.Fprintf(w, "%-10s %s\n", p.Name, p.Description)
	}
}

// runHelp prints help for a specific command.
func runHelp(args []string, env *Environment) int {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return ExitSuccess
	}

	switch args[0] {
	case "capture":
		printCaptureUsage(env.Stdout)
	case "presets":
		fmt.Fprintln(env.Stdout, "Usage: snap2pdf presets")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "List request presets usable with --preset.")
	case "doctor":
		fmt.Fprintln(env.Stdout, "Usage: snap2pdf doctor [--json]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Check that Chrome can be found and the environment can run captures.")
	case "version":
		fmt.Fprintln(env.Stdout, "Usage: snap2pdf version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case "help":
		fmt.Fprintln(env.Stdout, "Usage: snap2pdf help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		fmt.Fprintf(env.Stderr, "unknown command: %s\n\n", args[0])
		printUsage(env.Stderr)
		return ExitUsage
	}
	return ExitSuccess
}
