package images

import (
	"strings"

	"github.com/grmc/storefront-backend/pkg/config"
)

const (
	DefaultPlaceholder = "/images/placeholder-product.png"
	DefaultLocalPrefix = "/uploaded_img/"
	publicProductsPath = "/storage/v1/object/public/products/"
)

// Resolver turns a stored product image reference into a displayable URL.
type Resolver struct {
	StorageBaseURL string
	LocalPrefix    string
	Placeholder    string
}

func NewResolver(cfg config.StorefrontConfig) Resolver {
	return Resolver{
		StorageBaseURL: cfg.StoragePublicURL,
		LocalPrefix:    cfg.LocalImagePrefix,
		Placeholder:    cfg.PlaceholderImage,
	}
}

// Resolve maps ref to a URL:
//
//	""                 -> placeholder
//	"http..."          -> unchanged
//	"dir/file.png"     -> <storage>/storage/v1/object/public/products/dir/file.png
//	"file.png", "/f"   -> <local prefix>file.png
func (r Resolver) Resolve(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return r.placeholder()
	}
	if strings.HasPrefix(ref, "http") {
		return ref
	}
	if strings.Contains(ref, "/") && !strings.HasPrefix(ref, "/") {
		return strings.TrimRight(r.StorageBaseURL, "/") + publicProductsPath + ref
	}
	return r.localPrefix() + strings.TrimLeft(ref, "/")
}

func (r Resolver) placeholder() string {
	if r.Placeholder == "" {
		return DefaultPlaceholder
	}
	return r.Placeholder
}

func (r Resolver) localPrefix() string {
	prefix := r.LocalPrefix
	if prefix == "" {
		prefix = DefaultLocalPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix
}
