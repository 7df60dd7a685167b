package vfs

import "context"

// Unimplemented is a Dispatcher base that fails every operation with
// ErrNotSupported. Filesystem cores embed it to stay compatible while
// implementing operations incrementally; the daemon uses it standalone as a
// protocol-only smoke target.
type Unimplemented struct{}

var _ Dispatcher = Unimplemented{}

func (Unimplemented) unsupported(op string) error {
	return &OpError{Code: ErrNotSupported, Message: op + " not implemented"}
}

func (u Unimplemented) GetAttr(ctx context.Context, args *GetAttrArgs) (*GetAttrResult, error) {
	return nil, u.unsupported("GETATTR")
}

func (u Unimplemented) SetAttr(ctx context.Context, args *SetAttrArgs) (*SetAttrResult, error) {
	return nil, u.unsupported("SETATTR")
}

func (u Unimplemented) Lookup(ctx context.Context, args *LookupArgs) (*LookupResult, error) {
	return nil, u.unsupported("LOOKUP")
}

func (u Unimplemented) Access(ctx context.Context, args *AccessArgs) (*AccessResult, error) {
	return nil, u.unsupported("ACCESS")
}

func (u Unimplemented) ReadLink(ctx context.Context, args *ReadLinkArgs) (*ReadLinkResult, error) {
	return nil, u.unsupported("READLINK")
}

func (u Unimplemented) Read(ctx context.Context, args *ReadArgs) (*ReadResult, error) {
	return nil, u.unsupported("READ")
}

func (u Unimplemented) Write(ctx context.Context, args *WriteArgs) (*WriteResult, error) {
	return nil, u.unsupported("WRITE")
}

func (u Unimplemented) Create(ctx context.Context, args *CreateArgs) (*CreateResult, error) {
	return nil, u.unsupported("CREATE")
}

func (u Unimplemented) Mkdir(ctx context.Context, args *MkdirArgs) (*MkdirResult, error) {
	return nil, u.unsupported("MKDIR")
}

func (u Unimplemented) Symlink(ctx context.Context, args *SymlinkArgs) (*SymlinkResult, error) {
	return nil, u.unsupported("SYMLINK")
}

func (u Unimplemented) Mknod(ctx context.Context, args *MknodArgs) (*MknodResult, error) {
	return nil, u.unsupported("MKNOD")
}

func (u Unimplemented) Remove(ctx context.Context, args *RemoveArgs) (*RemoveResult, error) {
	return nil, u.unsupported("REMOVE")
}

func (u Unimplemented) Rmdir(ctx context.Context, args *RmdirArgs) (*RmdirResult, error) {
	return nil, u.unsupported("RMDIR")
}

func (u Unimplemented) Rename(ctx context.Context, args *RenameArgs) (*RenameResult, error) {
	return nil, u.unsupported("RENAME")
}

func (u Unimplemented) Link(ctx context.Context, args *LinkArgs) (*LinkResult, error) {
	return nil, u.unsupported("LINK")
}

func (u Unimplemented) ReadDir(ctx context.Context, args *ReadDirArgs) (*ReadDirResult, error) {
	return nil, u.unsupported("READDIR")
}

func (u Unimplemented) ReadDirPlus(ctx context.Context, args *ReadDirPlusArgs) (*ReadDirPlusResult, error) {
	return nil, u.unsupported("READDIRPLUS")
}

func (u Unimplemented) FSStat(ctx context.Context, args *FSStatArgs) (*FSStatResult, error) {
	return nil, u.unsupported("FSSTAT")
}

func (u Unimplemented) FSInfo(ctx context.Context, args *FSInfoArgs) (*FSInfoResult, error) {
	return nil, u.unsupported("FSINFO")
}

func (u Unimplemented) PathConf(ctx context.Context, args *PathConfArgs) (*PathConfResult, error) {
	return nil, u.unsupported("PATHCONF")
}

func (u Unimplemented) Commit(ctx context.Context, args *CommitArgs) (*CommitResult, error) {
	return nil, u.unsupported("COMMIT")
}
