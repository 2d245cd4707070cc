// Package storage provides the file operations photopost performs outside the
// source folder.
//
// WriteFileAtomic is the single write path: data goes to a temporary sibling,
// is synced, then renamed into place. The ledger and the resize step both go
// through it.
//
// A Workspace is the working folder for resized temporaries. It refuses to
// remove anything outside itself.
//
// An Archive moves posted photos out of the source folder, keeping their
// relative paths, and can restore all of them when the source runs dry.
//
//	ws, err := storage.NewWorkspace(cfg.Photos.ResizedDir)
//	path, err := ws.Save("IMG_0001.jpg", func(w io.Writer) error {
//	    return jpeg.Encode(w, img, nil)
//	})
//	defer ws.Remove(path)
package storage
