package wlregistry

import (
	toplevellist "github.com/rajveermalviya/go-wayland/wayland/staging/ext-foreign-toplevel-list"

	"github.com/wayvnc-go/wayvnc/internal/logger"
	"github.com/wayvnc-go/wayvnc/internal/wlclient"
)

// bindToplevelManager binds the ext_foreign_toplevel_list global, turning
// each `toplevel` event into a tracked Toplevel image source. Called from Bind's global handler when that interface appears.
func bindToplevelManager(session *wlclient.Session, r *Registry, name, version uint32) {
	mgr := toplevellist.NewExtForeignToplevelListV1(session.Registry.Context())
	if err := session.Registry.Bind(name, "ext_foreign_toplevel_list_v1", version, mgr); err != nil {
		logger.Errorf("bind ext_foreign_toplevel_list_v1: %v", err)
		return
	}

	mgr.SetToplevelHandler(func(e toplevellist.ExtForeignToplevelListV1ToplevelEvent) {
		handle := e.Toplevel
		t := NewToplevel("", "", "")

		handle.SetIdentifierHandler(func(ev toplevellist.ExtForeignToplevelHandleV1IdentifierEvent) {
			t.Identifier = ev.Identifier
		})
		handle.SetAppIdHandler(func(ev toplevellist.ExtForeignToplevelHandleV1AppIdEvent) {
			t.AppID = ev.AppId
		})
		handle.SetTitleHandler(func(ev toplevellist.ExtForeignToplevelHandleV1TitleEvent) {
			t.Title = ev.Title
		})
		handle.SetClosedHandler(func(_ toplevellist.ExtForeignToplevelHandleV1ClosedEvent) {
			r.RemoveToplevel(t.Identifier)
		})
		handle.SetDoneHandler(func(_ toplevellist.ExtForeignToplevelHandleV1DoneEvent) {
			r.AddToplevel(t)
		})
	})
}
