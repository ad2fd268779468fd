// Package snap2pdf captures a subtree of a rendered web document into a
// print-ready PDF or PNG using headless Chrome.
//
// # Quick Start
//
// Create a capturer, capture, and close when done:
//
//	c := snap2pdf.NewCapturer(snap2pdf.WithOutputDir("out"))
//	defer c.Close()
//
//	req := snap2pdf.NewCaptureRequest(snap2pdf.Source{
//	    URL:      "https://example.com/coupons/42",
//	    Selector: "#coupon-card",
//	})
//	res, err := c.Capture(ctx, req)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.Artifact.Location)
//
// # Capture Pipeline
//
// Each capture runs these stages in order:
//
//  1. Isolation: the subtree is deep-cloned with its computed styles into an
//     off-screen container, optionally at fixed pixel dimensions
//  2. Asset readiness: every image of the clone (img, SVG image, CSS
//     background) is awaited concurrently, bounded by the asset timeout
//  3. Rasterization: the clone is painted at the requested scale over an
//     opaque background; cross-origin images that taint the readback are
//     reloaded anonymously or fail the capture
//  4. Composition: the raster is placed on pages by fit policy
//     (stretch-fit-width, contain-centered, exact-fill), with margins and
//     optional pagination
//  5. Emission: the pages are encoded, verified, named from the filename
//     template and delivered through the Saver
//
// The clone is removed and the page closed on every exit path.
//
// # Requests and Presets
//
// NewCaptureRequest fixes the identifier and creation time used by the
// {id}, {date} and {time} filename placeholders:
//
//	req := snap2pdf.NewCaptureRequest(snap2pdf.Source{File: "invoice.html", Selector: ".invoice"})
//	req.Page = snap2pdf.PageProfile{Size: snap2pdf.PageSizeA4, Margin: 2}
//	req.Paginate = true
//	req.Filename = "invoice-{id}-{date:compact}"
//
// Presets bundle the settings of common documents:
//
//	req, err := snap2pdf.ApplyPreset(req, "coupon")
//
// # Errors
//
// Fatal failures are *CaptureError values whose Kind is one of
// KindSourceUnavailable, KindRasterizationFailed or KindEncodingFailed.
// Match them with errors.Is against ErrSourceUnavailable and friends.
// Asset timeouts never abort a capture; they are reported in
// Result.Warnings with KindAssetTimeout.
//
// # Parallel Processing
//
// For batch capture, use CapturerPool to manage several browser instances:
//
//	pool := snap2pdf.NewCapturerPool(snap2pdf.ResolvePoolSize(0), snap2pdf.WithOutputDir("out"))
//	defer pool.Close()
//
//	res, err := pool.Capture(ctx, req)
package snap2pdf
