package images

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grmc/storefront-backend/pkg/config"
)

func TestResolve(t *testing.T) {
	r := Resolver{StorageBaseURL: "https://store.example/"}

	cases := []struct {
		name string
		ref  string
		want string
	}{
		{"empty", "", DefaultPlaceholder},
		{"blank", "   ", DefaultPlaceholder},
		{"absolute http", "http://cdn.example/a.png", "http://cdn.example/a.png"},
		{"absolute https", "https://cdn.example/a.png", "https://cdn.example/a.png"},
		{"storage path", "tiles/white.png", "https://store.example/storage/v1/object/public/products/tiles/white.png"},
		{"bare file", "white.png", "/uploaded_img/white.png"},
		{"leading slash", "/white.png", "/uploaded_img/white.png"},
		{"leading slash nested", "/a/b.png", "/uploaded_img/a/b.png"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, r.Resolve(tc.ref))
		})
	}
}

func TestNewResolverUsesConfig(t *testing.T) {
	r := NewResolver(config.StorefrontConfig{
		StoragePublicURL: "https://s.example",
		LocalImagePrefix: "/img",
		PlaceholderImage: "/ph.png",
	})
	require.Equal(t, "/ph.png", r.Resolve(""))
	require.Equal(t, "/img/a.png", r.Resolve("a.png"))
	require.Equal(t, "https://s.example/storage/v1/object/public/products/x/a.png", r.Resolve("x/a.png"))
}
