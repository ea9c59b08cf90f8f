package usecases

import (
	"fmt"
	"path"
	"strings"
	"unicode"

	"remote-file-manager/internal/domain"
)

// ResolvePath склеивает корень хранилища и логический путь клиента.
// Проверку на ".." делает вызывающий код, здесь её нет.
func ResolvePath(root, logical string) string {
	return path.Join(root, path.Clean(domain.PathRoot+logical))
}

// sanitizePath проверяет логический путь клиента и возвращает абсолютный путь на удалённом хранилище.
func (uc *FileManagementUseCase) sanitizePath(logical string) (string, error) {
	// CR/LF в пути FTP сервер примет как следующую команду.
	if hasControlChars(logical) {
		return "", fmt.Errorf("path %q contains control characters: %w", logical, domain.ErrPathTraversal)
	}

	normalized := strings.ReplaceAll(logical, `\`, domain.PathSeparator)
	for _, segment := range strings.Split(normalized, domain.PathSeparator) {
		if segment == domain.PathTraversalPrefix {
			return "", fmt.Errorf("path '%s' escapes the storage root: %w", logical, domain.ErrPathTraversal)
		}
	}

	if len(logical) > uc.cfg.File.MaxPathLength {
		return "", fmt.Errorf("path '%s' too long (%d > %d): %w",
			logical, len(logical), uc.cfg.File.MaxPathLength, domain.ErrPathTooLong)
	}

	return ResolvePath(uc.cfg.Remote.Root, normalized), nil
}

// validateName для новых имён: папок, файлов при загрузке, цели переименования.
func (uc *FileManagementUseCase) validateName(name string) error {
	if name == domain.PathEmpty || name == domain.PathCurrent || name == domain.PathParent {
		return fmt.Errorf("name '%s' is reserved: %w", name, domain.ErrInvalidName)
	}
	if hasControlChars(name) {
		return fmt.Errorf("name %q contains control characters: %w", name, domain.ErrInvalidName)
	}
	if !uc.validName.MatchString(name) {
		return fmt.Errorf("name '%s' is invalid: %w", name, domain.ErrInvalidName)
	}
	return nil
}

// validateSelection проверяет элементы буфера обмена или архива.
func (uc *FileManagementUseCase) validateSelection(items []domain.FileEntry) error {
	if len(items) == 0 {
		return fmt.Errorf("selection is empty: %w", domain.ErrInvalidRequest)
	}
	for _, item := range items {
		if err := uc.validateName(item.Name); err != nil {
			return err
		}
		if item.Kind != domain.KindFile && item.Kind != domain.KindDirectory {
			return fmt.Errorf("item '%s' has unknown type '%s': %w", item.Name, item.Kind, domain.ErrInvalidRequest)
		}
	}
	return nil
}

func hasControlChars(s string) bool {
	return strings.IndexFunc(s, unicode.IsControl) >= 0
}
