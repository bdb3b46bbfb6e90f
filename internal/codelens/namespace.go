package codelens

// Namespaces maps backends to rendering channels for the session lifetime.
type Namespaces struct {
	editor Editor
	byID   map[BackendID]NamespaceID
}

func newNamespaces(editor Editor) *Namespaces {
	return &Namespaces{
		editor: editor,
		byID:   make(map[BackendID]NamespaceID),
	}
}

// For returns the channel of backend, creating it on first use.
func (n *Namespaces) For(backend BackendID) NamespaceID {
	if ns, ok := n.byID[backend]; ok {
		return ns
	}
	ns := n.editor.CreateNamespace("codelens:" + backend.String())
	n.byID[backend] = ns
	return ns
}

// Lookup returns the channel of backend without creating one.
func (n *Namespaces) Lookup(backend BackendID) (NamespaceID, bool) {
	ns, ok := n.byID[backend]
	return ns, ok
}

// Len returns the number of channels created so far.
func (n *Namespaces) Len() int {
	return len(n.byID)
}
