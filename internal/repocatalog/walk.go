// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0

package repocatalog

import "github.com/opentofu-labs/modsys/internal/modfile"

// extractedModule is the result of walking a module file's stream once:
// its descriptor bytes, its classes (if requested), and the content of
// every file-bearing section, keyed by section type and subsection path.
type extractedModule struct {
	Descriptor []byte
	Classes    []modfile.ClassEntry
	Files      map[modfile.SectionType]map[string][]byte
}

// walkModuleFile parses data as a module file (validating every section
// and the whole-file hash), always extracting the MODULE_INFO descriptor. When extractFiles is false, CLASSES and the file-bearing
// sections are walked but their content is not collected, since a
// Repository publish only needs the descriptor and the header's
// size/hash metadata, not the expanded tree a Library install needs.
func walkModuleFile(data []byte, extractFiles bool) (*modfile.Reader, *extractedModule, error) {
	r, err := modfile.NewReader(data)
	if err != nil {
		return nil, nil, err
	}
	if r.Header.Type != modfile.ModuleFileType {
		return nil, nil, WrongFileTypeError{Got: r.Header.Type.String()}
	}

	out := &extractedModule{Files: map[modfile.SectionType]map[string][]byte{}}
	var currentType modfile.SectionType
	var currentFiles map[string][]byte

	for {
		ev, err := r.Next()
		if err != nil {
			return nil, nil, err
		}
		switch ev {
		case modfile.EventStartSection:
			currentType, err = r.CurrentSectionType()
			if err != nil {
				return nil, nil, err
			}
			currentFiles = nil
			switch {
			case currentType == modfile.ModuleInfoSection:
				content, err := r.GetContentStream()
				if err != nil {
					return nil, nil, err
				}
				out.Descriptor = content
			case currentType == modfile.ClassesSection && extractFiles:
				entries, err := r.GetClasses()
				if err != nil {
					return nil, nil, err
				}
				out.Classes = entries
			case currentType.HasFiles() && extractFiles:
				currentFiles = map[string][]byte{}
			}
		case modfile.EventStartSubsection:
			if currentFiles != nil {
				path, err := r.CurrentSubsectionPath()
				if err != nil {
					return nil, nil, err
				}
				content, err := r.GetContentStream()
				if err != nil {
					return nil, nil, err
				}
				currentFiles[path] = content
			}
		case modfile.EventEndSection:
			if currentFiles != nil {
				out.Files[currentType] = currentFiles
				currentFiles = nil
			}
		case modfile.EventEndFile:
			return r, out, nil
		}
	}
}
