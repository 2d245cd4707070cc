// Package poster runs one posting cycle: it discovers candidate photos,
// picks one weighted toward the least posted, downsizes it if needed,
// captions it from its EXIF metadata, sends it and records the post.
//
// Two bookkeeping modes are supported, chosen by Options.AfterPost:
//
//   - ledger: post counts are kept in a JSON ledger and every photo stays in
//     the source folder. Selection favours photos with lower counts.
//   - archive: a posted photo is moved to the archive folder. When the source
//     folder runs dry, every archived photo is moved back and a new rotation
//     begins.
//
// A post is recorded only after the transport confirms it. A failed upload
// leaves the ledger and the source folder untouched and is returned as an
// error; there is no retry.
//
// Usage:
//
//	p, closeFn, err := poster.FromConfig(cfg, token, log)
//	if err != nil {
//		return err
//	}
//	defer closeFn()
//
//	outcome, err := p.Run(ctx)
package poster
