package vfs

import "context"

// Dispatcher is the inode-operation surface the filesystem core implements.
//
// One method per NFSv3 procedure (NULL excepted, which never leaves the
// protocol layer). Every method takes a context and either returns a typed
// result or an error; *OpError values are translated to NFS status codes,
// anything else becomes a server fault. Operations may block for as long as
// they need - the front end runs them on a worker pool and never on a
// connection's read loop.
type Dispatcher interface {
	GetAttr(ctx context.Context, args *GetAttrArgs) (*GetAttrResult, error)
	SetAttr(ctx context.Context, args *SetAttrArgs) (*SetAttrResult, error)
	Lookup(ctx context.Context, args *LookupArgs) (*LookupResult, error)
	Access(ctx context.Context, args *AccessArgs) (*AccessResult, error)
	ReadLink(ctx context.Context, args *ReadLinkArgs) (*ReadLinkResult, error)
	Read(ctx context.Context, args *ReadArgs) (*ReadResult, error)
	Write(ctx context.Context, args *WriteArgs) (*WriteResult, error)
	Create(ctx context.Context, args *CreateArgs) (*CreateResult, error)
	Mkdir(ctx context.Context, args *MkdirArgs) (*MkdirResult, error)
	Symlink(ctx context.Context, args *SymlinkArgs) (*SymlinkResult, error)
	Mknod(ctx context.Context, args *MknodArgs) (*MknodResult, error)
	Remove(ctx context.Context, args *RemoveArgs) (*RemoveResult, error)
	Rmdir(ctx context.Context, args *RmdirArgs) (*RmdirResult, error)
	Rename(ctx context.Context, args *RenameArgs) (*RenameResult, error)
	Link(ctx context.Context, args *LinkArgs) (*LinkResult, error)
	ReadDir(ctx context.Context, args *ReadDirArgs) (*ReadDirResult, error)
	ReadDirPlus(ctx context.Context, args *ReadDirPlusArgs) (*ReadDirPlusResult, error)
	FSStat(ctx context.Context, args *FSStatArgs) (*FSStatResult, error)
	FSInfo(ctx context.Context, args *FSInfoArgs) (*FSInfoResult, error)
	PathConf(ctx context.Context, args *PathConfArgs) (*PathConfResult, error)
	Commit(ctx context.Context, args *CommitArgs) (*CommitResult, error)
}

// GetAttrArgs - RFC 1813 Section 3.3.1
type GetAttrArgs struct {
	Handle Handle
}

type GetAttrResult struct {
	Attr FileAttr
}

// SetAttrArgs - RFC 1813 Section 3.3.2
type SetAttrArgs struct {
	Handle Handle
	Attr   SetAttr

	// Guard, when non-nil, requires the object's current ctime to match
	// before applying the update (sattrguard3).
	Guard *GuardCtime
}

type GuardCtime struct {
	Ctime int64
	Nsec  uint32
}

type SetAttrResult struct {
	Before *WccAttr
	After  *FileAttr
}

// LookupArgs - RFC 1813 Section 3.3.3
type LookupArgs struct {
	Dir  Handle
	Name string
}

type LookupResult struct {
	Handle  Handle
	Attr    *FileAttr
	DirAttr *FileAttr
}

// AccessArgs - RFC 1813 Section 3.3.4
type AccessArgs struct {
	Handle Handle
	Check  uint32
}

type AccessResult struct {
	Attr    *FileAttr
	Granted uint32
}

// ReadLinkArgs - RFC 1813 Section 3.3.5
type ReadLinkArgs struct {
	Handle Handle
}

type ReadLinkResult struct {
	Attr   *FileAttr
	Target string
}

// ReadArgs - RFC 1813 Section 3.3.6
type ReadArgs struct {
	Handle Handle
	Offset uint64
	Count  uint32
}

type ReadResult struct {
	Attr  *FileAttr
	Data  []byte
	EOF   bool
	Count uint32
}

// WriteArgs - RFC 1813 Section 3.3.7
type WriteArgs struct {
	Handle Handle
	Offset uint64
	Stable StableHow
	Data   []byte
}

type WriteResult struct {
	Before    *WccAttr
	After     *FileAttr
	Count     uint32
	Committed StableHow
	Verifier  uint64
}

// CreateMode selects the CREATE semantics (createmode3).
type CreateMode uint32

const (
	CreateUnchecked CreateMode = iota
	CreateGuarded
	CreateExclusive
)

// CreateArgs - RFC 1813 Section 3.3.8
type CreateArgs struct {
	Dir  Handle
	Name string
	Mode CreateMode
	Attr SetAttr

	// Verifier is only meaningful for CreateExclusive.
	Verifier uint64
}

type CreateResult struct {
	Handle    Handle
	Attr      *FileAttr
	DirBefore *WccAttr
	DirAfter  *FileAttr
}

// MkdirArgs - RFC 1813 Section 3.3.9
type MkdirArgs struct {
	Dir  Handle
	Name string
	Attr SetAttr
}

type MkdirResult struct {
	Handle    Handle
	Attr      *FileAttr
	DirBefore *WccAttr
	DirAfter  *FileAttr
}

// SymlinkArgs - RFC 1813 Section 3.3.10
type SymlinkArgs struct {
	Dir    Handle
	Name   string
	Attr   SetAttr
	Target string
}

type SymlinkResult struct {
	Handle    Handle
	Attr      *FileAttr
	DirBefore *WccAttr
	DirAfter  *FileAttr
}

// MknodArgs - RFC 1813 Section 3.3.11
type MknodArgs struct {
	Dir  Handle
	Name string
	Type FileType
	Attr SetAttr
	Spec SpecData
}

type MknodResult struct {
	Handle    Handle
	Attr      *FileAttr
	DirBefore *WccAttr
	DirAfter  *FileAttr
}

// RemoveArgs - RFC 1813 Section 3.3.12
type RemoveArgs struct {
	Dir  Handle
	Name string
}

type RemoveResult struct {
	DirBefore *WccAttr
	DirAfter  *FileAttr
}

// RmdirArgs - RFC 1813 Section 3.3.13
type RmdirArgs struct {
	Dir  Handle
	Name string
}

type RmdirResult struct {
	DirBefore *WccAttr
	DirAfter  *FileAttr
}

// RenameArgs - RFC 1813 Section 3.3.14
type RenameArgs struct {
	FromDir  Handle
	FromName string
	ToDir    Handle
	ToName   string
}

type RenameResult struct {
	FromBefore *WccAttr
	FromAfter  *FileAttr
	ToBefore   *WccAttr
	ToAfter    *FileAttr
}

// LinkArgs - RFC 1813 Section 3.3.15
type LinkArgs struct {
	Handle Handle
	Dir    Handle
	Name   string
}

type LinkResult struct {
	Attr      *FileAttr
	DirBefore *WccAttr
	DirAfter  *FileAttr
}

// ReadDirArgs - RFC 1813 Section 3.3.16
type ReadDirArgs struct {
	Dir      Handle
	Cookie   uint64
	Verifier uint64
	Count    uint32
}

type ReadDirResult struct {
	DirAttr  *FileAttr
	Verifier uint64
	Entries  []DirEntry
	EOF      bool
}

// ReadDirPlusArgs - RFC 1813 Section 3.3.17
type ReadDirPlusArgs struct {
	Dir      Handle
	Cookie   uint64
	Verifier uint64
	DirCount uint32
	MaxCount uint32
}

type ReadDirPlusResult struct {
	DirAttr  *FileAttr
	Verifier uint64
	Entries  []DirEntryPlus
	EOF      bool
}

// FSStatArgs - RFC 1813 Section 3.3.18
type FSStatArgs struct {
	Handle Handle
}

type FSStatResult struct {
	Attr       *FileAttr
	TotalBytes uint64
	FreeBytes  uint64
	AvailBytes uint64
	TotalFiles uint64
	FreeFiles  uint64
	AvailFiles uint64
	Invarsec   uint32
}

// FSInfoArgs - RFC 1813 Section 3.3.19
type FSInfoArgs struct {
	Handle Handle
}

type FSInfoResult struct {
	Attr       *FileAttr
	ReadMax    uint32
	ReadPref   uint32
	ReadMult   uint32
	WriteMax   uint32
	WritePref  uint32
	WriteMult  uint32
	DirPref    uint32
	MaxFileSz  uint64
	TimeDelta  uint32
	Properties uint32
}

// PathConfArgs - RFC 1813 Section 3.3.20
type PathConfArgs struct {
	Handle Handle
}

type PathConfResult struct {
	Attr            *FileAttr
	LinkMax         uint32
	NameMax         uint32
	NoTrunc         bool
	ChownRestricted bool
	CaseInsensitive bool
	CasePreserving  bool
}

// CommitArgs - RFC 1813 Section 3.3.21
type CommitArgs struct {
	Handle Handle
	Offset uint64
	Count  uint32
}

type CommitResult struct {
	Before   *WccAttr
	After    *FileAttr
	Verifier uint64
}
