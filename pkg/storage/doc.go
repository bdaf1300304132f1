// Package storage writes fetched resources to the output directory.
//
// File names are derived from the resource GUID, so resources that declare
// the same file name never overwrite each other:
//
//	storage.ResolveName("a1b2", "photo.png", "image/png") // "a1b2_photo.png"
//	storage.ResolveName("a1b2", "", "image/jpeg")         // "a1b2.jpg"
//
// The Manager creates the output directory on its first Save, at most once,
// and writes each file through a temporary file and a rename. Saving the
// same resource again replaces the earlier file.
//
//	manager := storage.NewManager("note_images")
//	path, err := manager.Save(resource, data)
package storage
