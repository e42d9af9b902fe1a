package vmdb

import (
	"testing"

	"manageiq-vmdb/model"
)

func TestResolveHref(t *testing.T) {
	hrefs := []string{"services/80", "vms/12", "providers/24?attributes=vms", "/vms/1", "service_templates"}
	for _, href := range hrefs {
		if path := ResolveHref(href); path != href {
			t.Fatalf("Expected %s to resolve unchanged but got %s", href, path)
		}
	}
}

func TestResolveRawSlug(t *testing.T) {
	cases := map[string]string{
		"href_slug::services/80":      "services/80",
		"href_slug::vms/12":           "vms/12",
		"href_slug::":                 "",
		"href_slug::href_slug::vms/1": "href_slug::vms/1",
	}

	for href, expected := range cases {
		if path := ResolveHref(href); path != expected {
			t.Fatalf("Expected %s to resolve to %s but got %s", href, expected, path)
		}
	}
}

func TestResolveSelfLink(t *testing.T) {
	cases := map[string]string{
		"https://miq.example.com/api/vms/12":      "vms/12",
		"http://localhost:3000/api/services/80":   "services/80",
		"https://miq.example.com/api/providers/2": "providers/2",
		"vms/12": "vms/12",
	}

	for href, expected := range cases {
		path, err := ResolveSelfLink(map[string]interface{}{"href": href, "id": "12"})
		if err != nil {
			t.Fatalf("Error resolving %s: %s", href, err.Error())
		}
		if path != expected {
			t.Fatalf("Expected %s to resolve to %s but got %s", href, expected, path)
		}
	}
}

func TestResolveSelfLinkWithoutHref(t *testing.T) {
	objects := []map[string]interface{}{
		{},
		{"href": ""},
		{"href": 12},
		{"id": "12", "name": "vm1"},
	}

	for _, object := range objects {
		_, err := ResolveSelfLink(object)
		if err == nil {
			t.Fatalf("Expected error resolving object without href %v", object)
		}
		if ErrorKind(err) != ValidationKind {
			t.Fatalf("Expected validation error but got %s", ErrorKind(err))
		}
	}
}

func TestResolvePath(t *testing.T) {
	path, err := ResolvePath(model.ObjectReference{Href: "href_slug::services/80"})
	if err != nil || path != "services/80" {
		t.Fatalf("Unexpected resolution of href: %s, %v", path, err)
	}

	path, err = ResolvePath(model.ObjectReference{Object: map[string]interface{}{"href": "https://miq/api/vms/3"}})
	if err != nil || path != "vms/3" {
		t.Fatalf("Unexpected resolution of object: %s, %v", path, err)
	}
}
