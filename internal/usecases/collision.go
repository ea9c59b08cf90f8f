package usecases

import (
	"fmt"
	"path"
	"strings"

	"remote-file-manager/internal/domain"
)

// resolveCollision подбирает свободное имя в каталоге назначения.
// Файлы: "base (version N).ext", каталоги: "name (version N)". N считается от 1
// и всегда от исходного имени, суффиксы не накапливаются.
func resolveCollision(item domain.FileEntry, taken map[string]struct{}) string {
	if _, exists := taken[item.Name]; !exists {
		return item.Name
	}

	base, ext := item.Name, ""
	if !item.IsDir() {
		ext = path.Ext(item.Name)
		base = strings.TrimSuffix(item.Name, ext)
		// ".bashrc" целиком считается базой.
		if base == "" {
			base, ext = item.Name, ""
		}
	}

	for n := 1; ; n++ {
		candidate := base + fmt.Sprintf(domain.VersionSuffixFormat, n) + ext
		if _, exists := taken[candidate]; !exists {
			return candidate
		}
	}
}
